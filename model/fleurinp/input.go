// Package fleurinp provides the FLEUR XML input deck (inp.xml).
package fleurinp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/fleurflow/model/structure"
)

// FileName is FLEUR input deck file name
const FileName = "inp.xml"

// Input represents inp.xml document
type Input struct {
	doc *etree.Document
}

// Parse parses inp.xml content
func Parse(data []byte) (*Input, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %v: %w", FileName, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse %v: %w", FileName, ErrNoRoot)
	}
	return &Input{doc: doc}, nil
}

// Load loads input deck from URL
func Load(ctx context.Context, fs afs.Service, URL string) (*Input, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load input deck %v: %w", URL, err)
	}
	return Parse(data)
}

// Upload writes input deck to URL
func (i *Input) Upload(ctx context.Context, fs afs.Service, URL string) error {
	data, err := i.Bytes()
	if err != nil {
		return err
	}
	return fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(string(data)))
}

// Bytes returns serialized document
func (i *Input) Bytes() ([]byte, error) {
	doc := i.doc.Copy()
	doc.Indent(2)
	return doc.WriteToBytes()
}

// Clone returns a deep copy
func (i *Input) Clone() *Input {
	if i == nil {
		return nil
	}
	return &Input{doc: i.doc.Copy()}
}

// Root returns document root element
func (i *Input) Root() *etree.Element {
	return i.doc.Root()
}

// Find returns first element matching path, relative paths are resolved from the root element
func (i *Input) Find(path string) *etree.Element {
	return i.Root().FindElement(normalizePath(path))
}

// FindAll returns elements matching path
func (i *Input) FindAll(path string) []*etree.Element {
	return i.Root().FindElements(normalizePath(path))
}

// Query returns elements matching a user supplied path; malformed paths are reported as an error
func (i *Input) Query(path string) ([]*etree.Element, error) {
	compiled, err := etree.CompilePath(normalizePath(path))
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	return i.Root().FindElementsPath(compiled), nil
}

// Attr returns attribute value of the first element matching path
func (i *Input) Attr(path, name string) (string, bool) {
	elem := i.Find(path)
	if elem == nil {
		return "", false
	}
	attr := elem.SelectAttr(name)
	if attr == nil {
		return "", false
	}
	return strings.TrimSpace(attr.Value), true
}

// Float returns float attribute value
func (i *Input) Float(path, name string) (float64, error) {
	value, ok := i.Attr(path, name)
	if !ok {
		return 0, fmt.Errorf("%w: %v@%v", ErrMissingAttribute, path, name)
	}
	return ParseFloat(value)
}

// Int returns int attribute value
func (i *Input) Int(path, name string) (int, error) {
	value, ok := i.Attr(path, name)
	if !ok {
		return 0, fmt.Errorf("%w: %v@%v", ErrMissingAttribute, path, name)
	}
	ret, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %v@%v: %q", path, name, value)
	}
	return ret, nil
}

// Bool returns FLEUR logical attribute value
func (i *Input) Bool(path, name string) (bool, error) {
	value, ok := i.Attr(path, name)
	if !ok {
		return false, fmt.Errorf("%w: %v@%v", ErrMissingAttribute, path, name)
	}
	return ParseBool(value)
}

// Itmax returns number of iterations per run
func (i *Input) Itmax() (int, error) {
	return i.Int(PathScfLoop, "itmax")
}

// MinDistance returns charge density distance at which FLEUR stops
func (i *Input) MinDistance() (float64, error) {
	return i.Float(PathScfLoop, "minDistance")
}

// Mixing returns imix value
func (i *Input) Mixing() string {
	value, _ := i.Attr(PathScfLoop, "imix")
	return value
}

// HasLDAU returns true if any species defines LDA+U
func (i *Input) HasLDAU() bool {
	return i.Find(PathSpecies+"/ldaU") != nil
}

// IsNoco returns true for non-collinear magnetism
func (i *Input) IsNoco() bool {
	ret, _ := i.Bool(PathMagnetism, "l_noco")
	return ret
}

// IsRelax returns true if forces are calculated
func (i *Input) IsRelax() bool {
	ret, _ := i.Bool(PathGeometryOptimization, "l_f")
	return ret
}

// Composition returns number of atoms per element
func (i *Input) Composition() map[string]int {
	elements := map[string]string{}
	for _, species := range i.FindAll(PathSpecies) {
		element := species.SelectAttrValue("element", "")
		if element == "" {
			if z, err := strconv.Atoi(species.SelectAttrValue("atomicNumber", "")); err == nil {
				element, _ = structure.Symbol(z)
			}
		}
		elements[species.SelectAttrValue("name", "")] = element
	}
	ret := map[string]int{}
	for _, group := range i.FindAll(PathAtomGroup) {
		element := elements[group.SelectAttrValue("species", "")]
		if element == "" {
			continue
		}
		for _, child := range group.ChildElements() {
			switch child.Tag {
			case "relPos", "absPos", "filmPos":
				ret[element]++
			}
		}
	}
	return ret
}

// Formula returns Hill formula of the deck atoms
func (i *Input) Formula() string {
	return structure.HillFormula(i.Composition())
}

// MarshalJSON encodes deck as XML string
func (i *Input) MarshalJSON() ([]byte, error) {
	data, err := i.Bytes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(data))
}

// UnmarshalJSON decodes deck from XML string
func (i *Input) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := Parse([]byte(text))
	if err != nil {
		return err
	}
	i.doc = parsed.doc
	return nil
}

func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "/"+RootTag+"/")
	if path == "" {
		return "."
	}
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, ".") {
		return path
	}
	return "./" + path
}
