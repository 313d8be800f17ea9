package main

import (
	"fmt"
	"os"

	"github.com/gorustyt/navsystem/navsystem"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "navbake",
		Short:         "bake, inspect and query navigation meshes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().String("config", "navigation.yaml", "navigation config file")
	c.AddCommand(BakeCmd())
	c.AddCommand(InspectCmd())
	c.AddCommand(PathCmd())
	return c
}

func loadConfig(cmd *cobra.Command) (navsystem.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return navsystem.Config{}, err
	}
	return navsystem.LoadConfig(path)
}

// openSystem builds a navigation system over the scene geometry.
func openSystem(cmd *cobra.Command, scenePath string) (*navsystem.NavigationSystem, *scene, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	s, err := loadScene(scenePath)
	if err != nil {
		return nil, nil, err
	}
	n, err := navsystem.New(cfg, s.generator())
	if err != nil {
		return nil, nil, err
	}
	return n, s, nil
}
