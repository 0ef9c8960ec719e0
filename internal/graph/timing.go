package graph

import "time"

// CallbackEvents returns the callback's execution events in order.
func (g *Graph) CallbackEvents(id CallbackID) []*CallbackEvent {
	c := g.callbacks.get(id)
	if c == nil {
		return nil
	}
	out := make([]*CallbackEvent, 0, len(c.Events))
	for _, evID := range c.Events {
		if cb, ok := g.events.get(evID).Payload.(*CallbackEvent); ok {
			out = append(out, cb)
		}
	}
	return out
}

// CallbackDurations returns the execution time of every invocation of a
// callback.
func (g *Graph) CallbackDurations(id CallbackID) []time.Duration {
	events := g.CallbackEvents(id)
	out := make([]time.Duration, len(events))
	for i, ev := range events {
		out[i] = time.Duration(ev.Duration())
	}
	return out
}

// MeanPeriod is the average spacing between consecutive invocation starts of
// a timer's callback. It needs at least two invocations.
func (g *Graph) MeanPeriod(id TimerID) (time.Duration, bool) {
	t := g.timers.get(id)
	if t == nil {
		return 0, false
	}
	events := g.CallbackEvents(t.Callback)
	if len(events) < 2 {
		return 0, false
	}
	span := events[len(events)-1].Start - events[0].Start
	return time.Duration(span / int64(len(events)-1)), true
}
