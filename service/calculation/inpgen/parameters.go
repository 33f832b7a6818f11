package inpgen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/structure"
)

// FileName is the inpgen input file name
const FileName = "aiida.in"

var namelists = map[string]bool{
	"input": true, "lattice": true, "atom": true, "comp": true, "exco": true,
	"film": true, "kpt": true, "qss": true, "soc": true, "gen": true, "expert": true,
}

// Namelist represents an inpgen namelist, for example &comp kmax=4.0 /
type Namelist struct {
	Name   string                 `json:"name" yaml:"name"`
	Values map[string]interface{} `json:"values,omitempty" yaml:"values,omitempty"`
}

// Parameters represents optional inpgen parameters
type Parameters struct {
	Title     string      `json:"title,omitempty" yaml:"title,omitempty"`
	Namelists []*Namelist `json:"namelists,omitempty" yaml:"namelists,omitempty"`
}

// Validate checks namelist names; every name except atom may appear once
func (p *Parameters) Validate() error {
	if p == nil {
		return nil
	}
	seen := map[string]bool{}
	for _, namelist := range p.Namelists {
		name := strings.ToLower(namelist.Name)
		if !namelists[name] {
			return fmt.Errorf("unknown inpgen namelist %q", namelist.Name)
		}
		if seen[name] && name != "atom" {
			return fmt.Errorf("namelist %q is repeated", namelist.Name)
		}
		seen[name] = true
	}
	return nil
}

// Render returns the inpgen input text for the structure: lattice vectors in bohr,
// fractional positions, and for films a cartesian z coordinate in bohr
func Render(s *structure.Structure, parameters *Parameters) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if err := parameters.Validate(); err != nil {
		return "", err
	}
	if parameters == nil {
		parameters = &Parameters{}
	}
	builder := &strings.Builder{}
	title := parameters.Title
	if title == "" {
		title = s.Formula()
	}
	builder.WriteString(title + "\n")

	input := map[string]interface{}{"cartesian": false, "film": s.IsFilm()}
	var rest []*Namelist
	for _, namelist := range parameters.Namelists {
		if strings.EqualFold(namelist.Name, "input") {
			for k, v := range namelist.Values {
				if k != "film" && k != "cartesian" {
					input[k] = v
				}
			}
			continue
		}
		rest = append(rest, namelist)
	}
	writeNamelist(builder, "input", input)

	for _, vector := range s.Cell {
		fmt.Fprintf(builder, "%16.10f %16.10f %16.10f\n", vector[0]*structure.BohrPerAngstrom, vector[1]*structure.BohrPerAngstrom, vector[2]*structure.BohrPerAngstrom)
	}
	fmt.Fprintf(builder, "%16.10f\n", 1.0)
	fmt.Fprintf(builder, "%16.10f %16.10f %16.10f\n\n", 1.0, 1.0, 1.0)

	fmt.Fprintf(builder, "%d\n", len(s.Sites))
	labels := atomLabels(s)
	for i, site := range s.Sites {
		position := s.Fractional(site.Position)
		if s.IsFilm() {
			position[2] = site.Position[2] * structure.BohrPerAngstrom
		}
		fmt.Fprintf(builder, "%-6s %16.10f %16.10f %16.10f\n", labels[i], position[0], position[1], position[2])
	}
	for _, namelist := range rest {
		writeNamelist(builder, strings.ToLower(namelist.Name), namelist.Values)
	}
	return builder.String(), nil
}

// atomLabels returns atomic numbers, with a .n suffix distinguishing kinds of the same element
func atomLabels(s *structure.Structure) []string {
	kinds := map[string][]string{}
	for _, site := range s.Sites {
		if site.Kind == "" || site.Kind == site.Symbol {
			continue
		}
		if !containsString(kinds[site.Symbol], site.Kind) {
			kinds[site.Symbol] = append(kinds[site.Symbol], site.Kind)
		}
	}
	ret := make([]string, len(s.Sites))
	for i, site := range s.Sites {
		z, _ := structure.AtomicNumber(site.Symbol)
		ret[i] = strconv.Itoa(z)
		for index, kind := range kinds[site.Symbol] {
			if kind == site.Kind {
				ret[i] += "." + strconv.Itoa(index+1)
			}
		}
	}
	return ret
}

func writeNamelist(builder *strings.Builder, name string, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	builder.WriteString("&" + name)
	for _, k := range keys {
		builder.WriteString(" " + k + "=" + formatValue(values[k]))
	}
	builder.WriteString(" /\n")
}

func formatValue(value interface{}) string {
	if text, ok := value.(string); ok {
		return "'" + text + "'"
	}
	return fleurinp.FormatValue(value)
}

func containsString(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
