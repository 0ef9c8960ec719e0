package graph

import "fmt"

// ViolationKind categorises a broken graph invariant.
type ViolationKind string

const (
	// ViolationUnsorted means an entity's event list is not ordered by
	// earliest stamp.
	ViolationUnsorted ViolationKind = "UNSORTED_EVENTS"

	// ViolationTimerTrigger means a timer-sourced callback event is not
	// triggered by that same timer.
	ViolationTimerTrigger ViolationKind = "TIMER_TRIGGER"

	// ViolationCausality means a trigger postdates its effect.
	ViolationCausality ViolationKind = "CAUSALITY"

	// ViolationCycle means following triggers revisits an event.
	ViolationCycle ViolationKind = "TRIGGER_CYCLE"
)

// Violation is one broken invariant found by Verify.
type Violation struct {
	Kind    ViolationKind
	Event   EventID
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: event %d: %s", v.Kind, v.Event, v.Message)
}

// Verify checks the invariants every built graph must hold:
//
//   - every entity's event list is sorted ascending by earliest stamp
//   - a callback event sourced by a timer is triggered by that timer
//   - a trigger never postdates its effect; a non-callback trigger completes
//     (latest stamp) before the effect's earliest stamp, a callback trigger
//     starts before it
//   - following triggers never revisits an event
//
// Violations are returned in event order.
func Verify(g *Graph) []Violation {
	var out []Violation

	checkSorted := func(owner string, ids []EventID) {
		for i := 1; i < len(ids); i++ {
			prev, cur := g.events.get(ids[i-1]), g.events.get(ids[i])
			if prev.Earliest() > cur.Earliest() {
				out = append(out, Violation{
					Kind:    ViolationUnsorted,
					Event:   cur.ID,
					Message: fmt.Sprintf("%s: %d after %d", owner, cur.Earliest(), prev.Earliest()),
				})
			}
		}
	}
	for _, c := range g.callbacks.items {
		checkSorted(fmt.Sprintf("callback %#x", c.Handle), c.Events)
	}
	for _, p := range g.publishers.items {
		checkSorted(fmt.Sprintf("publisher %#x", p.Handle), p.Events)
	}
	for _, s := range g.subscriptions.items {
		checkSorted(fmt.Sprintf("subscription %#x", s.Handle), s.Events)
	}

	for _, ev := range g.events.items {
		if _, ok := ev.source.Timer(); ok {
			if ev.trigger != ev.source {
				out = append(out, Violation{
					Kind:    ViolationTimerTrigger,
					Event:   ev.ID,
					Message: fmt.Sprintf("source %s, trigger %s", ev.source, ev.trigger),
				})
			}
		}

		trigID, ok := ev.trigger.Event()
		if !ok {
			continue
		}
		trig := g.events.get(trigID)
		if trig == nil {
			continue
		}
		bound := trig.Stamps.Latest()
		if cb, isCallback := trig.Payload.(*CallbackEvent); isCallback {
			bound = cb.Start
		}
		if bound > ev.Earliest() {
			out = append(out, Violation{
				Kind:    ViolationCausality,
				Event:   ev.ID,
				Message: fmt.Sprintf("trigger %d at %d after effect at %d", trigID, bound, ev.Earliest()),
			})
		}
	}

	out = append(out, findCycles(g)...)
	return out
}

// findCycles walks every trigger chain once. Each event is coloured while
// its chain is being followed; meeting an in-progress event closes a cycle.
func findCycles(g *Graph) []Violation {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make([]uint8, g.events.len()+1)

	var out []Violation
	for _, start := range g.events.items {
		var path []EventID
		id := start.ID
		for {
			if state[id] == done {
				break
			}
			if state[id] == inProgress {
				out = append(out, Violation{
					Kind:    ViolationCycle,
					Event:   id,
					Message: fmt.Sprintf("cycle through %d events", cycleLength(path, id)),
				})
				break
			}
			state[id] = inProgress
			path = append(path, id)

			next, ok := g.events.get(id).trigger.Event()
			if !ok || g.events.get(next) == nil {
				break
			}
			id = next
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return out
}

func cycleLength(path []EventID, closing EventID) int {
	for i, id := range path {
		if id == closing {
			return len(path) - i
		}
	}
	return len(path)
}
