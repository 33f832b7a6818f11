package fleurinp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RootTag is the inp.xml root element
const RootTag = "fleurInput"

// Well known element paths, relative to the root element
const (
	PathCalculationSetup     = "calculationSetup"
	PathCutoffs              = "calculationSetup/cutoffs"
	PathScfLoop              = "calculationSetup/scfLoop"
	PathCoreElectrons        = "calculationSetup/coreElectrons"
	PathXCFunctional         = "calculationSetup/xcFunctional"
	PathMagnetism            = "calculationSetup/magnetism"
	PathSOC                  = "calculationSetup/soc"
	PathExpertModes          = "calculationSetup/expertModes"
	PathGeometryOptimization = "calculationSetup/geometryOptimization"
	PathLDAU                 = "calculationSetup/ldaU"
	PathKPointCount          = "cell/bzIntegration/kPointCount"
	PathKPointList           = "cell/bzIntegration/kPointList"
	PathAtomSpecies          = "atomSpecies"
	PathSpecies              = "atomSpecies/species"
	PathAtomGroups           = "atomGroups"
	PathAtomGroup            = "atomGroups/atomGroup"
	PathOutput               = "output"
)

var (
	// ErrNoRoot is returned for an empty document
	ErrNoRoot = errors.New("document has no root element")
	// ErrMissingAttribute is returned when an attribute is not defined
	ErrMissingAttribute = errors.New("missing attribute")
)

// ParseFloat parses FLEUR floating point notation, including fortran double exponent
func ParseFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	normalized := strings.NewReplacer("d", "e", "D", "e").Replace(value)
	ret, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %q", value)
	}
	return ret, nil
}

// ParseBool parses FLEUR logical notation
func ParseBool(value string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "T", "TRUE", ".TRUE.":
		return true, nil
	case "F", "FALSE", ".FALSE.":
		return false, nil
	}
	return false, fmt.Errorf("invalid logical: %q", value)
}

// FormatValue formats value in FLEUR notation
func FormatValue(value interface{}) string {
	switch actual := value.(type) {
	case bool:
		if actual {
			return "T"
		}
		return "F"
	case float64:
		return strconv.FormatFloat(actual, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(actual), 'f', -1, 32)
	case int:
		return strconv.Itoa(actual)
	case int64:
		return strconv.FormatInt(actual, 10)
	case string:
		return actual
	case fmt.Stringer:
		return actual.String()
	}
	return fmt.Sprintf("%v", value)
}
