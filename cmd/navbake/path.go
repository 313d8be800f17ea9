package main

import (
	"fmt"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
	"github.com/gorustyt/navsystem/pathfinder"
	"github.com/spf13/cobra"
)

const maxPathUpdates = 10000

type requester navigation.AgentTypeID

func (r requester) AgentTypeID() navigation.AgentTypeID {
	return navigation.AgentTypeID(r)
}

func toVec3(v []float32) (common.Vec3, error) {
	if len(v) != 3 {
		return common.Vec3{}, fmt.Errorf("expected x,y,z, got %d values", len(v))
	}
	return common.ParseVec3(v), nil
}

func PathCmd() *cobra.Command {
	var scenePath, input, agentType string
	var from, to []float32
	c := &cobra.Command{
		Use:   "path",
		Short: "compute a path on an exported navigation file",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := toVec3(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := toVec3(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			n, _, err := openSystem(cmd, scenePath)
			if err != nil {
				return err
			}
			defer n.Close()
			if _, err := n.ReadFromFile(input); err != nil {
				return err
			}
			agentID := n.Registry().GetAgentTypeID(agentType)
			if agentID == navigation.InvalidAgentTypeID {
				return fmt.Errorf("%w %q", navigation.ErrInvalidAgentType, agentType)
			}

			var result *pathfinder.Result
			n.RequestPathTo(requester(agentID), pathfinder.PathRequest{
				Start: start,
				End:   end,
				Callback: func(_ pathfinder.RequestID, r pathfinder.Result) {
					result = &r
				},
			})
			for i := 0; i < maxPathUpdates && result == nil; i++ {
				n.Update(1.0/30.0, false)
			}
			if result == nil {
				return fmt.Errorf("no answer after %d updates", maxPathUpdates)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", result.Status)
			for _, p := range result.Path {
				fmt.Fprintf(out, "%.3f %.3f %.3f", p.Position[0], p.Position[1], p.Position[2])
				if p.OffMeshLink != mnm.InvalidOffMeshLinkID {
					fmt.Fprintf(out, " link %d", p.OffMeshLink)
				}
				fmt.Fprintln(out)
			}
			if result.Status != pathfinder.StatusSuccess {
				return fmt.Errorf("path request failed: %s", result.Status)
			}
			return nil
		},
	}
	c.Flags().StringVar(&scenePath, "scene", "scene.yaml", "scene file")
	c.Flags().StringVarP(&input, "input", "i", "navigation.nav", "exported navigation file")
	c.Flags().StringVar(&agentType, "agent", "human", "agent type")
	c.Flags().Float32SliceVar(&from, "from", nil, "start position x,y,z")
	c.Flags().Float32SliceVar(&to, "to", nil, "end position x,y,z")
	return c
}
