package builder

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
)

// Pass names used in diagnostics and logs.
const (
	PassCapture                 = "capture"
	PassContexts                = "contexts"
	PassNodes                   = "nodes"
	PassCallbacks               = "callbacks"
	PassPublishers              = "publishers"
	PassSubscriptions           = "subscriptions"
	PassTimers                  = "timers"
	PassIntraProcess            = "intra_process"
	PassCallbackEvents          = "callback_events"
	PassPublishEvents           = "publish_events"
	PassIntraPublishEvents      = "intra_publish_events"
	PassSubscriptionEvents      = "subscription_events"
	PassIntraSubscriptionEvents = "intra_subscription_events"
	PassTimerCallbacks          = "timer_callbacks"
	PassSubscriptionCallbacks   = "subscription_callbacks"
	PassPublishSubscribe        = "publish_subscribe"
	PassPublishCallbacks        = "publish_callbacks"
	PassVerify                  = "verify"
)

type builder struct {
	g     *graph.Graph
	recs  *record.Collection
	opts  Options
	log   *slog.Logger
	diags Diagnostics
}

// Build constructs the causal graph of a capture. It always returns a graph;
// problems are reported through the returned diagnostics.
func Build(recs *record.Collection, opts Options) (*graph.Graph, Diagnostics) {
	if recs == nil {
		recs = record.NewCollection()
	}
	b := &builder{
		g:    graph.New(),
		recs: recs,
		opts: opts,
		log:  opts.Logger,
	}
	if b.log == nil {
		b.log = slog.Default()
	}

	b.g.Discarded = recs.Discarded
	if recs.Discarded > 0 {
		b.report(Diagnostic{
			Code:    CodeUpstreamDataLoss,
			Pass:    PassCapture,
			Message: fmt.Sprintf("tracer discarded %d events; correlation quality is degraded", recs.Discarded),
		})
	}

	b.buildEntities()
	b.buildEvents()
	b.associate()

	if opts.Verify {
		b.verify()
	}

	b.log.Info("graph built",
		"nodes", len(b.g.Nodes()),
		"topics", len(b.g.Topics()),
		"events", b.g.EventCount(),
		"diagnostics", len(b.diags),
	)
	return b.g, b.diags
}

func (b *builder) report(d Diagnostic) {
	b.diags = append(b.diags, d)
	b.log.Warn(d.Message,
		"code", d.Code,
		"pass", d.Pass,
		"tracepoint", d.Tracepoint,
		"timestamp", d.Timestamp,
		"handle", d.Handle,
	)
}

// reportRecord files a diagnostic about one record.
func (b *builder) reportRecord(code Code, pass string, r record.Record, handle uint64, format string, args ...any) {
	b.report(Diagnostic{
		Code:       code,
		Pass:       pass,
		Tracepoint: r.Name,
		Timestamp:  r.Timestamp,
		Handle:     handle,
		Message:    fmt.Sprintf(format, args...),
	})
}

// reportf files a diagnostic that is not tied to a single record.
func (b *builder) reportf(code Code, pass string, handle uint64, format string, args ...any) {
	b.report(Diagnostic{
		Code:    code,
		Pass:    pass,
		Handle:  handle,
		Message: fmt.Sprintf(format, args...),
	})
}

func (b *builder) handle(r record.Record, field string) uint64 {
	h, _ := r.Handle(field)
	return h
}

func (b *builder) str(r record.Record, field string) string {
	s, _ := r.Str(field)
	return s
}

func (b *builder) num(r record.Record, field string) int64 {
	n, _ := r.Int(field)
	return n
}

// verify maps graph invariant violations to diagnostics.
func (b *builder) verify() {
	violations := graph.Verify(b.g)
	for _, v := range violations {
		code := CodeInvariantViolation
		if v.Kind == graph.ViolationCausality {
			code = CodeCausalityViolation
		}
		b.report(Diagnostic{
			Code:    code,
			Pass:    PassVerify,
			Message: v.String(),
		})
	}
	b.log.Info("verified graph", "violations", len(violations))
}
