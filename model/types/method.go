package types

import (
	"context"
	"reflect"
)

type Signatures []Signature

func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Signature	method signature
type Signature struct {
	Name   string
	Input  reflect.Type
	Output reflect.Type
}

// NewOutput allocates a zero output value for the method
func (s *Signature) NewOutput() interface{} {
	if s.Output.Kind() == reflect.Ptr {
		return reflect.New(s.Output.Elem()).Interface()
	}
	return reflect.New(s.Output).Interface()
}

// Accepts returns true if input is assignable to the method input type
func (s *Signature) Accepts(input interface{}) bool {
	return input != nil && reflect.TypeOf(input).AssignableTo(s.Input)
}

// Executable is a function that can be executed
type Executable func(context context.Context, input, output interface{}) error
