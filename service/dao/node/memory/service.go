package memory

import (
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/dao/store"
)

// Service implements an in-memory, thread-safe node store; all methods work with copies
type Service struct {
	*store.MemoryStore[execution.Node, *execution.Node]
}

var _ dao.Service[string, execution.Node] = (*Service)(nil)

// New creates a node store listing nodes by creation time
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[execution.Node, *execution.Node](
		func(n *execution.Node) string { return n.ID },
		func(a, b *execution.Node) bool { return a.CreatedAt.Before(b.CreatedAt) },
	)}
}
