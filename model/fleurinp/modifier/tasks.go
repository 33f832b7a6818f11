package modifier

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/structology/visitor"
)

func setInpchanges(input *fleurinp.Input, args map[string]interface{}) error {
	visit := visitor.MapVisitorOf[string, interface{}](args)
	return visit(func(key string, value interface{}) (bool, error) {
		loc, ok := inpchanges[key]
		if !ok {
			return false, fmt.Errorf("%w: %v", ErrUnknownKey, key)
		}
		elem := input.Find(loc.path)
		if elem == nil {
			elem = ensurePath(input, loc.path)
		}
		elem.CreateAttr(loc.attr, fleurinp.FormatValue(value))
		return true, nil
	})
}

func setAttribValue(input *fleurinp.Input, args map[string]interface{}) error {
	xpath, err := stringArg(args, "xpath")
	if err != nil {
		return err
	}
	name, err := stringArg(args, "attributename")
	if err != nil {
		return err
	}
	value, ok := args["attribv"]
	if !ok {
		return fmt.Errorf("%w: attribv is required", ErrInvalidArgument)
	}
	elements, err := selected(input, xpath, args)
	if err != nil {
		return err
	}
	for _, elem := range elements {
		elem.CreateAttr(name, fleurinp.FormatValue(value))
	}
	return nil
}

func setText(input *fleurinp.Input, args map[string]interface{}) error {
	xpath, err := stringArg(args, "xpath")
	if err != nil {
		return err
	}
	text, ok := args["text"]
	if !ok {
		return fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}
	elements, err := selected(input, xpath, args)
	if err != nil {
		return err
	}
	for _, elem := range elements {
		elem.SetText(fleurinp.FormatValue(text))
	}
	return nil
}

func setSpecies(input *fleurinp.Input, args map[string]interface{}) error {
	name, err := stringArg(args, "species_name")
	if err != nil {
		return err
	}
	attributes, err := mapArg(args, "attributedict")
	if err != nil {
		return err
	}
	var elements []*etree.Element
	for _, elem := range input.FindAll(fleurinp.PathSpecies) {
		if name == "all" || elem.SelectAttrValue("name", "") == name {
			elements = append(elements, elem)
		}
	}
	if len(elements) == 0 {
		return fmt.Errorf("%w: species %v", ErrNotFound, name)
	}
	for _, elem := range elements {
		if err := setNested(elem, attributes); err != nil {
			return err
		}
	}
	return nil
}

func setAtomgroup(input *fleurinp.Input, args map[string]interface{}) error {
	name, err := stringArg(args, "species")
	if err != nil {
		return err
	}
	attributes, err := mapArg(args, "attributedict")
	if err != nil {
		return err
	}
	var elements []*etree.Element
	for _, elem := range input.FindAll(fleurinp.PathAtomGroup) {
		if name == "all" || elem.SelectAttrValue("species", "") == name {
			elements = append(elements, elem)
		}
	}
	if len(elements) == 0 {
		return fmt.Errorf("%w: atom group of species %v", ErrNotFound, name)
	}
	for _, elem := range elements {
		if err := setNested(elem, attributes); err != nil {
			return err
		}
	}
	return nil
}

func setNkpts(input *fleurinp.Input, args map[string]interface{}) error {
	count, ok := intValue(args["count"])
	if !ok || count < 1 {
		return fmt.Errorf("%w: count must be a positive int, got %v", ErrInvalidArgument, args["count"])
	}
	elem := input.Find(fleurinp.PathKPointCount)
	if elem == nil {
		return fmt.Errorf("%w: %v", ErrNotFound, fleurinp.PathKPointCount)
	}
	elem.CreateAttr("count", fleurinp.FormatValue(count))
	if gamma, ok := args["gamma"]; ok {
		elem.CreateAttr("gamma", fleurinp.FormatValue(gamma))
	}
	return nil
}

func createTag(input *fleurinp.Input, args map[string]interface{}) error {
	xpath, err := stringArg(args, "xpath")
	if err != nil {
		return err
	}
	tag, err := stringArg(args, "newelement")
	if err != nil {
		return err
	}
	elements, err := selected(input, xpath, args)
	if err != nil {
		return err
	}
	for _, elem := range elements {
		elem.CreateElement(tag)
	}
	return nil
}

func deleteTag(input *fleurinp.Input, args map[string]interface{}) error {
	xpath, err := stringArg(args, "xpath")
	if err != nil {
		return err
	}
	elements, err := selected(input, xpath, args)
	if err != nil {
		return err
	}
	for _, elem := range elements {
		if elem == input.Root() {
			return fmt.Errorf("%w: root element can not be deleted", ErrInvalidArgument)
		}
		elem.Parent().RemoveChild(elem)
	}
	return nil
}

func deleteAtt(input *fleurinp.Input, args map[string]interface{}) error {
	xpath, err := stringArg(args, "xpath")
	if err != nil {
		return err
	}
	name, err := stringArg(args, "attributename")
	if err != nil {
		return err
	}
	elements, err := selected(input, xpath, args)
	if err != nil {
		return err
	}
	for _, elem := range elements {
		elem.RemoveAttr(name)
	}
	return nil
}

func selected(input *fleurinp.Input, xpath string, args map[string]interface{}) ([]*etree.Element, error) {
	elements, err := input.Query(xpath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, xpath)
	}
	occurrences, err := occurrencesArg(args)
	if err != nil || occurrences == nil {
		return elements, err
	}
	var ret []*etree.Element
	for _, index := range occurrences {
		if index < 0 {
			index += len(elements)
		}
		if index < 0 || index >= len(elements) {
			return nil, fmt.Errorf("%w: occurrence %d out of %d matches of %v", ErrInvalidArgument, index, len(elements), xpath)
		}
		ret = append(ret, elements[index])
	}
	return ret, nil
}

// setNested sets scalar values as attributes and map values on child elements, creating missing children
func setNested(elem *etree.Element, attributes map[string]interface{}) error {
	visit := visitor.MapVisitorOf[string, interface{}](attributes)
	return visit(func(key string, value interface{}) (bool, error) {
		switch value.(type) {
		case map[string]interface{}, map[interface{}]interface{}:
			nested, err := asMap(value, key)
			if err != nil {
				return false, err
			}
			child := elem.SelectElement(key)
			if child == nil {
				child = elem.CreateElement(key)
			}
			return true, setNested(child, nested)
		}
		elem.CreateAttr(key, fleurinp.FormatValue(value))
		return true, nil
	})
}

// ensurePath creates missing elements along a relative path
func ensurePath(input *fleurinp.Input, path string) *etree.Element {
	elem := input.Root()
	for _, tag := range strings.Split(strings.Trim(path, "/"), "/") {
		child := elem.SelectElement(tag)
		if child == nil {
			child = elem.CreateElement(tag)
		}
		elem = child
	}
	return elem
}
