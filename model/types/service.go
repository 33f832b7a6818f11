package types

import "github.com/viant/fleurflow/model/exitcode"

// Service is a service interface
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

// Proxy wraps a service, for example to trace its methods
type Proxy func(base Service) Service

// Summarizer is implemented by outputs recorded on provenance nodes
type Summarizer interface {
	Summary() map[string]interface{}
}

// Coder is implemented by outputs reporting a process exit code
type Coder interface {
	Code() *exitcode.ExitCode
}
