// Package console is the terminal front-end: it prints what the controller
// renders and turns typed lines into commands.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"pebfutar.app/internal/presentation"
)

// Renderer prints the foreground screen each time the controller shows one.
// Menus, status and detail are kept until then.
type Renderer struct {
	mu       sync.Mutex
	w        io.Writer
	menus    map[presentation.Flow][]presentation.Section
	status   presentation.Status
	detail   [2]string
	screen   presentation.Screen
	flow     presentation.Flow
	retry    bool
	rendered int
}

func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, menus: make(map[presentation.Flow][]presentation.Section)}
}

func (r *Renderer) Sections(flow presentation.Flow, sections []presentation.Section) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus[flow] = sections
	// A menu that is already on screen is reprinted, e.g. after a favorite
	// toggle.
	if r.rendered > 0 && r.screen != presentation.ScreenStatus && r.screen != presentation.ScreenStopDetail && r.flow == flow {
		r.print()
	}
}

func (r *Renderer) Status(status presentation.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.retry = status.Retry
}

func (r *Renderer) Detail(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detail = [2]string{title, body}
}

func (r *Renderer) Show(screen presentation.Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screen = screen
	if flow, ok := flowOf(screen); ok {
		r.flow = flow
	}
	r.print()
}

// Flow is the flow whose menu was shown last; commands address it.
func (r *Renderer) Flow() presentation.Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flow
}

func flowOf(s presentation.Screen) (presentation.Flow, bool) {
	switch s {
	case presentation.ScreenStops:
		return presentation.FlowStops, true
	case presentation.ScreenDepartures:
		return presentation.FlowDepartures, true
	case presentation.ScreenTripDetail:
		return presentation.FlowTripDetail, true
	default:
		return 0, false
	}
}

func (r *Renderer) print() {
	r.rendered++
	var b strings.Builder
	b.WriteString("\n")
	switch r.screen {
	case presentation.ScreenStatus:
		fmt.Fprintf(&b, "%s\n%s\n", r.status.Title, r.status.Body)
		if r.retry {
			b.WriteString("[r] retry\n")
		}
	case presentation.ScreenStopDetail:
		fmt.Fprintf(&b, "%s\n%s\n", r.detail[0], r.detail[1])
	default:
		writeMenu(&b, r.menus[r.flow])
	}
	_, _ = io.WriteString(r.w, b.String())
}

func writeMenu(b *strings.Builder, sections []presentation.Section) {
	for si, s := range sections {
		if s.Title == "" && len(s.Items) == 0 {
			continue
		}
		fmt.Fprintf(b, "-- %s --\n", s.Title)
		for ii, it := range s.Items {
			fmt.Fprintf(b, "%3d.%-3d %s\n", si, ii, it.Title)
			if it.Subtitle != "" {
				fmt.Fprintf(b, "        %s\n", it.Subtitle)
			}
		}
	}
}
