package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var changes []Progress
	var mux sync.Mutex
	ctx, tracker := WithNewTracker(context.Background(), "n1", "fleur.scf", func(p Progress) {
		mux.Lock()
		changes = append(changes, p)
		mux.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UpdateCtx(ctx, Delta{Submitted: 1, Running: 1})
			UpdateCtx(ctx, Delta{Finished: 1, Running: -1})
		}()
	}
	wg.Wait()
	snapshot, ok := GetSnapshot(ctx)
	assert.True(t, ok)
	assert.Equal(t, 10, snapshot.Submitted)
	assert.Equal(t, 10, snapshot.Finished)
	assert.Equal(t, 0, snapshot.Running)
	assert.Equal(t, "fleur.scf", tracker.Workchain)
	assert.Len(t, changes, 20)

	UpdateCtx(context.Background(), Delta{Loops: 1})
	var nilTracker *Progress
	nilTracker.Update(Delta{Loops: 1})
	assert.Equal(t, Progress{}, nilTracker.Snapshot())
}
