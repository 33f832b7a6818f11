package dao

// Parameter represents a List filter, matched against a named entity attribute
type Parameter struct {
	Name  string
	Value interface{}
}

// Well known parameter names
const (
	ParamState    = "State"
	ParamParentID = "ParentID"
	ParamKind     = "Kind"
	ParamType     = "Type"
)

// NewParameter creates a parameter matching any of values
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
