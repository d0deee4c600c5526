package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dkeye/Mesh/internal/core"
)

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

// RoomsView lists live rooms with their member counts.
func RoomsView(rooms []core.RoomInfo) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No live rooms")
	}
	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, []string{string(r.Code), strconv.Itoa(r.MemberCount)})
	}
	return render([]string{"Room", "Members"}, rows)
}

// RoomView is the detail card of one room.
func RoomView(room core.RoomDTO) string {
	rows := [][]string{
		{"Code", string(room.RoomCode)},
		{"Capacity", room.Capacity.String()},
		{"Created", room.CreatedAt.Local().Format(time.DateTime)},
	}
	if room.LiveParticipantCount != nil {
		rows = append(rows, []string{"Live", strconv.Itoa(*room.LiveParticipantCount)})
	}
	return render([]string{"Field", "Value"}, rows)
}

// CreatedView announces a freshly created room.
func CreatedView(room core.RoomDTO) string {
	return SuccessBoxStyle.Render(fmt.Sprintf("Room created\n\nCode:      %s\nCapacity:  %s",
		BoldStyle.Foreground(Primary).Render(string(room.RoomCode)),
		room.Capacity,
	))
}

func MembersView(members []core.MemberDTO) string {
	if len(members) == 0 {
		return MutedStyle.Render("Nobody is here")
	}
	rows := make([][]string, 0, len(members))
	for i, m := range members {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Username,
			string(m.ID),
			yesNo(m.Muted),
			yesNo(m.VideoOff),
		})
	}
	return render([]string{"#", "Name", "ID", "Muted", "Video off"}, rows)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
