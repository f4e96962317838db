package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chazu/molprint/pkg/pins"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/chazu/molprint/pkg/session"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E67E22"))
)

// maxListed caps the member names printed per group.
const maxListed = 12

// swatch renders a two-cell block in color hex.
func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}

func printGroups(w io.Writer, s *session.Session) {
	if s.Groups == nil {
		fmt.Fprintln(w, dimStyle.Render("no groups"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s: %d groups", s.Name, len(s.Groups.Groups))))
	for _, g := range s.Groups.Groups {
		fmt.Fprintf(w, "%s group%-3d %3d members  %s\n",
			swatch(g.Color.Hex()), g.ID, len(g.Members), dimStyle.Render(names(s.Scene, g.Members)))
	}
	if n := len(s.Groups.Unreached); n > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d unreached: %s", n, names(s.Scene, s.Groups.Unreached))))
	}
}

func names(sc *scene.Scene, ids []scene.ID) string {
	out := make([]string, 0, maxListed+1)
	for i, id := range ids {
		if i == maxListed {
			out = append(out, fmt.Sprintf("(+%d)", len(ids)-maxListed))
			break
		}
		out = append(out, sc.Name(id))
	}
	return strings.Join(out, " ")
}

func definePins(s *session.Session, kind string) error {
	t, err := pins.ParseType(kind)
	if err != nil {
		return err
	}
	_, err = s.DefinePins(t)
	return err
}
