package main

import (
	"fmt"
	"os"

	"github.com/gorustyt/navsystem/navio"
	"github.com/spf13/cobra"
)

func InspectCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "inspect <file>",
		Short: "print the content of an exported navigation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := navio.Unmarshal(data, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file version %d, config version %d\n", f.FileVersion, f.ConfigVersion)
			for _, a := range f.Areas {
				fmt.Fprintf(out, "area %s volume %d\n", a.Name, a.ID)
			}
			for _, a := range f.Agents {
				fmt.Fprintf(out, "agent type %s\n", a.Name)
				for _, m := range a.Meshes {
					triangles := 0
					for _, t := range m.Tiles {
						triangles += len(t.Tile.Triangles)
					}
					fmt.Fprintf(out, "  mesh %s id %d: %d tiles, %d triangles, %d islands, %d exclusions\n",
						m.Name, m.ID, len(m.Tiles), triangles, m.TotalIslands, len(m.Exclusions))
				}
			}
			return nil
		},
	}
	return c
}
