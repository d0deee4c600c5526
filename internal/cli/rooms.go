package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Mesh/internal/domain"
	"github.com/dkeye/Mesh/internal/ui"
)

func newRoomsCommand(opts *options) *cobra.Command {
	rooms := &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"r"},
		Short:   "Create and inspect rooms",
	}
	rooms.AddCommand(
		newCreateCommand(opts),
		newGetCommand(opts),
		newListCommand(opts),
		newMembersCommand(opts),
	)
	return rooms
}

func newCreateCommand(opts *options) *cobra.Command {
	var capacity string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and print its code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var requested *domain.Capacity
			if capacity != "" {
				c, err := domain.ParseCapacity(capacity)
				if err != nil {
					return err
				}
				requested = &c
			}
			api, err := opts.client()
			if err != nil {
				return err
			}
			room, err := api.CreateRoom(cmd.Context(), requested)
			if err != nil {
				return fmt.Errorf("create room: %w", err)
			}
			return opts.print(cmd, room, ui.CreatedView(room))
		},
	}
	cmd.Flags().StringVarP(&capacity, "capacity", "c", "", `member limit, a number or "unlimited"`)
	return cmd
}

func newGetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get CODE",
		Short: "Show a room and its live participant count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(args[0])
			if err != nil {
				return err
			}
			api, err := opts.client()
			if err != nil {
				return err
			}
			room, err := api.Room(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("room %s: %w", code, err)
			}
			return opts.print(cmd, room, ui.RoomView(room))
		},
	}
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List rooms that have live members",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}
			rooms, err := api.Rooms(cmd.Context())
			if err != nil {
				return fmt.Errorf("list rooms: %w", err)
			}
			return opts.print(cmd, rooms, ui.RoomsView(rooms))
		},
	}
}

func newMembersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "members CODE",
		Short: "List the members of a room in join order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := parseCode(args[0])
			if err != nil {
				return err
			}
			api, err := opts.client()
			if err != nil {
				return err
			}
			members, err := api.Members(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("members of %s: %w", code, err)
			}
			return opts.print(cmd, members, ui.MembersView(members))
		},
	}
}

func parseCode(s string) (domain.RoomCode, error) {
	code := domain.RoomCode(s)
	if !code.Valid() {
		return "", fmt.Errorf("invalid room code %q: want %d digits", s, domain.RoomCodeLen)
	}
	return code, nil
}
