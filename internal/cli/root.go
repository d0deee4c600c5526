// Package cli is the meshctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Mesh/internal/client"
	"github.com/dkeye/Mesh/internal/ui"
)

const defaultServer = "http://localhost:8080"

type options struct {
	server  string
	timeout time.Duration
	json    bool
	verbose bool
}

func (o *options) client() (*client.Client, error) {
	return client.New(o.server, o.timeout)
}

// print writes v as JSON when --json is set and the human view otherwise.
func (o *options) print(cmd *cobra.Command, v any, human string) error {
	out := cmd.OutOrStdout()
	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, human)
	return err
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	server := os.Getenv("MESH_SERVER")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:   "meshctl",
		Short: "Inspect and manage the rooms of a Mesh signaling server",
		Long: `meshctl talks to the room admission API of a running Mesh server.

Examples:
  meshctl rooms create --capacity 4
  meshctl rooms get 482913
  meshctl --server https://mesh.example.org rooms list`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", server, "server base URL (env MESH_SERVER)")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	flags.BoolVar(&opts.json, "json", false, "print JSON instead of tables")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests")

	root.AddCommand(newRoomsCommand(opts), newHealthCommand(opts))
	return root
}

// Execute runs meshctl with the process arguments.
func Execute() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
