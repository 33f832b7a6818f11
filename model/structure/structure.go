// Package structure defines a crystal structure used to generate FLEUR input.
package structure

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// BohrPerAngstrom converts Angstrom into bohr
const BohrPerAngstrom = 1.8897261246257702

// Site represents an atom in cartesian coordinates (Angstrom)
type Site struct {
	Symbol   string     `json:"symbol" yaml:"symbol"`
	Position [3]float64 `json:"position" yaml:"position"`
	Kind     string     `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Structure represents a periodic cell with sites
type Structure struct {
	Cell  [3][3]float64 `json:"cell" yaml:"cell"`
	Sites []*Site       `json:"sites" yaml:"sites"`
	PBC   [3]bool       `json:"pbc" yaml:"pbc"`
}

// IsFilm returns true for a two dimensional structure
func (s *Structure) IsFilm() bool {
	return s.PBC[0] && s.PBC[1] && !s.PBC[2]
}

// Validate checks structure consistency
func (s *Structure) Validate() error {
	if len(s.Sites) == 0 {
		return errors.New("structure has no sites")
	}
	if !s.PBC[0] || !s.PBC[1] {
		return fmt.Errorf("unsupported periodic boundary conditions: %v", s.PBC)
	}
	if math.Abs(s.Volume()) < 1e-8 {
		return errors.New("structure cell is singular")
	}
	for i, site := range s.Sites {
		if _, ok := AtomicNumber(site.Symbol); !ok {
			return fmt.Errorf("site %d: unknown element %q", i, site.Symbol)
		}
	}
	return nil
}

// Volume returns cell volume
func (s *Structure) Volume() float64 {
	a, b, c := s.Cell[0], s.Cell[1], s.Cell[2]
	return a[0]*(b[1]*c[2]-b[2]*c[1]) - a[1]*(b[0]*c[2]-b[2]*c[0]) + a[2]*(b[0]*c[1]-b[1]*c[0])
}

// Fractional returns position in cell coordinates
func (s *Structure) Fractional(position [3]float64) [3]float64 {
	a, b, c := s.Cell[0], s.Cell[1], s.Cell[2]
	volume := s.Volume()
	// rows of the inverse transposed cell are the reciprocal vectors divided by 2pi
	ra := cross(b, c)
	rb := cross(c, a)
	rc := cross(a, b)
	return [3]float64{
		dot(ra, position) / volume,
		dot(rb, position) / volume,
		dot(rc, position) / volume,
	}
}

// Composition returns number of atoms per element
func (s *Structure) Composition() map[string]int {
	ret := map[string]int{}
	for _, site := range s.Sites {
		ret[site.Symbol]++
	}
	return ret
}

// Formula returns Hill formula of the structure
func (s *Structure) Formula() string {
	return HillFormula(s.Composition())
}

// HillFormula formats composition in Hill order: C, H, then alphabetical; alphabetical without carbon
func HillFormula(composition map[string]int) string {
	var symbols []string
	for symbol := range composition {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	if _, ok := composition["C"]; ok {
		var ordered = []string{"C"}
		if _, ok := composition["H"]; ok {
			ordered = append(ordered, "H")
		}
		for _, symbol := range symbols {
			if symbol != "C" && symbol != "H" {
				ordered = append(ordered, symbol)
			}
		}
		symbols = ordered
	}
	builder := strings.Builder{}
	for _, symbol := range symbols {
		builder.WriteString(symbol)
		if count := composition[symbol]; count > 1 {
			builder.WriteString(strconv.Itoa(count))
		}
	}
	return builder.String()
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
