package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Mesh/internal/ui"
)

func newHealthCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			h, err := api.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}
			human := fmt.Sprintf("%s  %d connections, %d live rooms",
				ui.BoldStyle.Render(h.Status), h.Connections, h.Rooms)
			return opts.print(cmd, h, human)
		},
	}
}
