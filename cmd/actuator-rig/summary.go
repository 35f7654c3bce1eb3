package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"actuator-rig/internal/rig"
)

var summaryOut io.Writer = os.Stdout

type outputSummary struct {
	Output    string
	Sets      int
	Peak      int
	Released  bool
	ReleaseAt int // value held when the output was released
	Held      time.Duration
}

// summarizeMockEvents folds the recorded transitions into one row per
// output: write count, peak value, and whether the output was released
// and at what value. Held is open-to-close (or open-to-last-event for a
// leaked output).
func summarizeMockEvents(events []rig.MockEvent) []outputSummary {
	byOutput := map[string]*outputSummary{}
	opened := map[string]time.Time{}
	var order []string

	for _, e := range events {
		s, ok := byOutput[e.Output]
		if !ok {
			s = &outputSummary{Output: e.Output}
			byOutput[e.Output] = s
			order = append(order, e.Output)
		}
		switch e.Op {
		case rig.MockOpen:
			opened[e.Output] = e.At
		case rig.MockSet:
			s.Sets++
			if e.Value > s.Peak {
				s.Peak = e.Value
			}
			if at, ok := opened[e.Output]; ok {
				s.Held = e.At.Sub(at)
			}
		case rig.MockClose:
			s.Released = true
			s.ReleaseAt = e.Value
			if at, ok := opened[e.Output]; ok {
				s.Held = e.At.Sub(at)
			}
		}
	}

	sort.Strings(order)
	out := make([]outputSummary, 0, len(order))
	for _, name := range order {
		out = append(out, *byOutput[name])
	}
	return out
}

func printMockSummary(w io.Writer, m *rig.Mock) {
	events := m.Events()
	sums := summarizeMockEvents(events)

	fmt.Fprintf(w, "dry run: %d transitions on %d outputs\n", len(events), len(sums))
	for _, s := range sums {
		fmt.Fprintf(w, "  %s: sets=%d peak=%d released=%v release_value=%d held=%s\n",
			s.Output, s.Sets, s.Peak, s.Released, s.ReleaseAt, s.Held.Round(time.Millisecond))
	}
	if leaked := m.Leaked(); len(leaked) > 0 {
		fmt.Fprintf(w, "  leaked: %v\n", leaked)
	}
}
