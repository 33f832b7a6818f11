package memory

import (
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/dao/store"
)

// Service implements an in-memory job store; jobs hold live inputs and are not persisted across restarts
type Service struct {
	*store.MemoryStore[execution.Job, *execution.Job]
}

var _ dao.Service[string, execution.Job] = (*Service)(nil)

// New creates a job store listing jobs by schedule time
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[execution.Job, *execution.Job](
		func(j *execution.Job) string { return j.ID },
		func(a, b *execution.Job) bool { return a.ScheduledAt.Before(b.ScheduledAt) },
	)}
}
