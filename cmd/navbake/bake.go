package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func BakeCmd() *cobra.Command {
	var scenePath, output, snapshot string
	c := &cobra.Command{
		Use:   "bake",
		Short: "generate every tile of a scene and export the meshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, s, err := openSystem(cmd, scenePath)
			if err != nil {
				return err
			}
			defer n.Close()
			if err := s.build(n); err != nil {
				return err
			}
			n.ProcessQueuedMeshUpdates()

			if output != "" {
				if err := n.SaveToFile(output); err != nil {
					return err
				}
			}
			if snapshot != "" {
				st, err := n.OpenSnapshotStore()
				if err != nil {
					return err
				}
				defer st.Close()
				if err := n.SaveSnapshot(st, snapshot); err != nil {
					return err
				}
			}
			reg := n.Registry()
			for _, id := range reg.MeshIDs() {
				m := reg.GetMesh(id)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d tiles\t%d islands\n",
					reg.GetAgentTypeName(m.AgentTypeID), m.Name, m.Grid.GetTileCount(), m.Grid.GetTotalIslands())
			}
			return nil
		},
	}
	c.Flags().StringVar(&scenePath, "scene", "scene.yaml", "scene file")
	c.Flags().StringVarP(&output, "output", "o", "navigation.nav", "exported navigation file, empty to skip")
	c.Flags().StringVar(&snapshot, "snapshot", "", "also store the export under this snapshot key")
	return c
}
