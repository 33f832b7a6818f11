package modifier

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrUnknownMethod is returned for unsupported change methods
	ErrUnknownMethod = errors.New("unknown change method")
	// ErrUnknownKey is returned for unsupported set_inpchanges keys
	ErrUnknownKey = errors.New("unknown key")
	// ErrNotFound is returned when a path selects no element
	ErrNotFound = errors.New("no element matched")
	// ErrInvalidArgument is returned for missing or mistyped arguments
	ErrInvalidArgument = errors.New("invalid argument")
)

func stringArg(args map[string]interface{}, name string) (string, error) {
	value, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: %v is required", ErrInvalidArgument, name)
	}
	text, ok := value.(string)
	if !ok || text == "" {
		return "", fmt.Errorf("%w: %v must be a non empty string, got %T", ErrInvalidArgument, name, value)
	}
	return text, nil
}

func mapArg(args map[string]interface{}, name string) (map[string]interface{}, error) {
	value, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v is required", ErrInvalidArgument, name)
	}
	return asMap(value, name)
}

func asMap(value interface{}, name string) (map[string]interface{}, error) {
	switch actual := value.(type) {
	case map[string]interface{}:
		return actual, nil
	case map[interface{}]interface{}:
		ret := make(map[string]interface{}, len(actual))
		for k, v := range actual {
			ret[fmt.Sprintf("%v", k)] = v
		}
		return ret, nil
	}
	return nil, fmt.Errorf("%w: %v must be a map, got %T", ErrInvalidArgument, name, value)
}

func intValue(value interface{}) (int, bool) {
	switch actual := value.(type) {
	case int:
		return actual, true
	case int64:
		return int(actual), true
	case float64:
		if actual == float64(int(actual)) {
			return int(actual), true
		}
	case string:
		ret, err := strconv.Atoi(actual)
		return ret, err == nil
	}
	return 0, false
}

// occurrencesArg returns selected indexes, nil means all
func occurrencesArg(args map[string]interface{}) ([]int, error) {
	value, ok := args["occurrences"]
	if !ok || value == nil {
		return nil, nil
	}
	if index, ok := intValue(value); ok {
		return []int{index}, nil
	}
	items, ok := value.([]interface{})
	if !ok {
		if ints, ok := value.([]int); ok {
			return ints, nil
		}
		return nil, fmt.Errorf("%w: occurrences must be int or list, got %T", ErrInvalidArgument, value)
	}
	var ret []int
	for _, item := range items {
		index, ok := intValue(item)
		if !ok {
			return nil, fmt.Errorf("%w: occurrence %v is not an int", ErrInvalidArgument, item)
		}
		ret = append(ret, index)
	}
	return ret, nil
}
