package fleurinp

import (
	"errors"
	"fmt"
	"strconv"
)

// MixingSchemes lists imix values accepted by FLEUR
var MixingSchemes = []string{"straight", "Broyden1", "Broyden2", "Anderson", "Pulay", "pPulay", "rPulay", "aPulay"}

// ForceMixingSchemes lists forcemix values accepted by FLEUR
var ForceMixingSchemes = []string{"straight", "BFGS", "BFGS_old"}

// ValidationError aggregates all problems found in a deck
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %v: %v", FileName, errors.Join(e.Problems...))
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Validate checks deck structure and values used by the workflows
func (i *Input) Validate() error {
	var problems []error
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}
	if tag := i.Root().Tag; tag != RootTag {
		add("unexpected root element %q", tag)
	}
	if i.Find(PathScfLoop) == nil {
		add("missing %v", PathScfLoop)
	} else {
		if itmax, err := i.Itmax(); err != nil {
			problems = append(problems, err)
		} else if itmax < 1 {
			add("itmax must be positive: %d", itmax)
		}
		if value, ok := i.Attr(PathScfLoop, "minDistance"); ok {
			if distance, err := ParseFloat(value); err != nil {
				problems = append(problems, err)
			} else if distance < 0 {
				add("minDistance must not be negative: %v", distance)
			}
		}
		if imix, ok := i.Attr(PathScfLoop, "imix"); ok && !contains(MixingSchemes, imix) {
			add("unsupported imix %q", imix)
		}
	}
	if value, ok := i.Attr(PathCutoffs, "Kmax"); ok {
		if kmax, err := ParseFloat(value); err != nil || kmax <= 0 {
			add("invalid Kmax %q", value)
		}
	}
	if elem := i.Find(PathGeometryOptimization); elem != nil {
		if value := elem.SelectAttrValue("forcemix", ""); value != "" && !contains(ForceMixingSchemes, value) {
			add("unsupported forcemix %q", value)
		}
		for _, name := range []string{"forcealpha", "epsforce", "epsdisp"} {
			if value := elem.SelectAttrValue(name, ""); value != "" {
				if number, err := ParseFloat(value); err != nil || number < 0 {
					add("invalid %v %q", name, value)
				}
			}
		}
		if value := elem.SelectAttrValue("l_f", ""); value != "" {
			if _, err := ParseBool(value); err != nil {
				problems = append(problems, err)
			}
		}
	}
	if value, ok := i.Attr(PathExpertModes, "spex"); ok {
		if spex, err := strconv.Atoi(value); err != nil || spex < 0 || spex > 2 {
			add("invalid spex mode %q", value)
		}
	}
	species := map[string]bool{}
	for _, elem := range i.FindAll(PathSpecies) {
		species[elem.SelectAttrValue("name", "")] = true
	}
	if len(species) == 0 {
		add("no species defined")
	}
	groups := i.FindAll(PathAtomGroup)
	if len(groups) == 0 {
		add("no atom groups defined")
	}
	for _, group := range groups {
		if name := group.SelectAttrValue("species", ""); !species[name] {
			add("atom group refers to unknown species %q", name)
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
