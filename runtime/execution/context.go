package execution

import (
	"context"
	"reflect"
)

var JobKey = KeyOf[*Job]()
var NodeKey = KeyOf[*Node]()

// WithJob returns context carrying the job being executed
func WithJob(ctx context.Context, job *Job) context.Context {
	return context.WithValue(ctx, JobKey, job)
}

// WithNode returns context carrying the workchain node
func WithNode(ctx context.Context, node *Node) context.Context {
	return context.WithValue(ctx, NodeKey, node)
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		return value.(T)
	}
	var t T
	return t
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}
