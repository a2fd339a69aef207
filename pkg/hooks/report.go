package hooks

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// WriteReport renders a rejection report: every fault, grouped by plugin,
// each plugin's faults in (ref, commit) order. Styling degrades to plain
// text when the writer is not a terminal.
func WriteReport(w io.Writer, point HookPoint, faults []Fault) {
	if len(faults) == 0 {
		return
	}

	r := lipgloss.NewRenderer(w)
	headline := r.NewStyle().Bold(true)
	section := r.NewStyle().Bold(true)
	detail := r.NewStyle().Faint(true)

	noun := "fault"
	if len(faults) > 1 {
		noun = "faults"
	}
	fmt.Fprintln(w, headline.Render(fmt.Sprintf("githooks: %s rejected, %d %s", point, len(faults), noun)))

	for _, plugin := range pluginOrder(faults) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, section.Render(plugin+":"))
		for _, f := range faults {
			if f.Plugin != plugin {
				continue
			}
			fmt.Fprintf(w, "  %s\n", f.String())
			for _, line := range strings.Split(strings.TrimRight(f.Detail, "\n"), "\n") {
				if line == "" {
					continue
				}
				fmt.Fprintf(w, "    %s\n", detail.Render(line))
			}
		}
	}
}

// pluginOrder returns plugin names in first-appearance order of the
// sorted fault list.
func pluginOrder(faults []Fault) []string {
	seen := make(map[string]struct{})
	var order []string
	for _, f := range faults {
		if _, ok := seen[f.Plugin]; ok {
			continue
		}
		seen[f.Plugin] = struct{}{}
		order = append(order, f.Plugin)
	}
	return order
}
