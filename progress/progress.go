package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/fleurflow/internal/clock"
)

// Delta represents an incremental counter change emitted by workchains.
// Fields are signed, a negative value decrements the counter.
type Delta struct {
	Submitted int
	Finished  int
	Failed    int
	Running   int
	Restarts  int
	Loops     int
}

// Progress keeps counters of the root workchain and all its children.
// It is safe for concurrent use.
type Progress struct {
	RootNodeID string
	Workchain  string
	StartedAt  time.Time

	Submitted int
	Finished  int
	Failed    int
	Running   int
	Restarts  int
	Loops     int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the delta; the onChange callback is invoked with a copy outside the lock
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.Submitted += d.Submitted
	p.Finished += d.Finished
	p.Failed += d.Failed
	p.Running += d.Running
	p.Restarts += d.Restarts
	p.Loops += d.Loops
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy for read-only inspection
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

func (p *Progress) copy() Progress {
	return Progress{
		RootNodeID: p.RootNodeID,
		Workchain:  p.Workchain,
		StartedAt:  p.StartedAt,
		Submitted:  p.Submitted,
		Finished:   p.Finished,
		Failed:     p.Failed,
		Running:    p.Running,
		Restarts:   p.Restarts,
		Loops:      p.Loops,
	}
}

// OnChange registers a callback invoked after every update; nil disables it
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker and embeds it in a derived context
func WithNewTracker(ctx context.Context, rootNodeID, workchain string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		RootNodeID: rootNodeID,
		Workchain:  workchain,
		StartedAt:  clock.Now(),
		onChange:   onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext returns the tracker carried by ctx
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot combines FromContext and Snapshot
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}

// UpdateCtx applies the delta to the tracker in ctx, if any
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
