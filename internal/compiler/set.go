package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"

	"github.com/roach88/implied/internal/ir"
)

// PredicateSet is a named list of predicates loaded from a CUE or YAML file.
type PredicateSet struct {
	Name        string
	Description string
	Predicates  []*ir.Predicate

	// Sources holds the text each predicate was written as, index for index.
	Sources []string
}

// Texts returns the canonical form of every predicate.
func (s *PredicateSet) Texts() []string {
	out := make([]string, len(s.Predicates))
	for i, p := range s.Predicates {
		out[i] = p.String()
	}
	return out
}

// CompileSet parses a CUE value into a PredicateSet.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the set struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`set: orders: { predicates: ["x < y"] }`)
//	set, err := CompileSet(v.LookupPath(cue.ParsePath("set.orders")))
//
// Entries of predicates are either text ("x < y") or structs with left,
// op and right fields; right may be an integer.
func CompileSet(v cue.Value) (*PredicateSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	set := &PredicateSet{}

	// Name defaults to the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		set.Name = labels[len(labels)-1].String()
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		set.Name = name
	}

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		set.Description = desc
	}

	predsVal := v.LookupPath(cue.ParsePath("predicates"))
	if !predsVal.Exists() {
		return nil, &CompileError{
			Field:   "predicates",
			Message: "predicates is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := predsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		field := fmt.Sprintf("predicates[%d]", i)

		src, p, err := compileEntry(elem)
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: err.Error(),
				Pos:     elem.Pos(),
				Err:     err,
			}
		}
		set.add(src, p)
	}

	return set, nil
}

// compileEntry converts one list element, text or struct form.
func compileEntry(v cue.Value) (string, *ir.Predicate, error) {
	if v.Kind() == cue.StringKind {
		text, err := v.String()
		if err != nil {
			return "", nil, err
		}
		p, err := ParsePredicate(text)
		return text, p, err
	}

	left, err := v.LookupPath(cue.ParsePath("left")).String()
	if err != nil {
		return "", nil, fmt.Errorf("left: %w", formatCUEError(err))
	}
	op, err := v.LookupPath(cue.ParsePath("op")).String()
	if err != nil {
		return "", nil, fmt.Errorf("op: %w", formatCUEError(err))
	}

	rightVal := v.LookupPath(cue.ParsePath("right"))
	var right string
	switch rightVal.Kind() {
	case cue.IntKind:
		n, err := rightVal.Int64()
		if err != nil {
			return "", nil, fmt.Errorf("right: %w", formatCUEError(err))
		}
		right = fmt.Sprintf("%d", n)
	default:
		right, err = rightVal.String()
		if err != nil {
			return "", nil, fmt.Errorf("right: %w", formatCUEError(err))
		}
	}

	src := left + " " + op + " " + right
	p, err := ParseOperands(left, op, right)
	return src, p, err
}

// yamlSet is the on-disk YAML shape of a predicate set.
type yamlSet struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Predicates  []yamlEntry `yaml:"predicates"`
}

// yamlEntry accepts either a scalar ("x < y") or a {left, op, right} map.
type yamlEntry struct {
	Text string
	Line int
}

func (e *yamlEntry) UnmarshalYAML(node *yaml.Node) error {
	e.Line = node.Line
	switch node.Kind {
	case yaml.ScalarNode:
		e.Text = node.Value
		return nil
	case yaml.MappingNode:
		var parts struct {
			Left  string `yaml:"left"`
			Op    string `yaml:"op"`
			Right string `yaml:"right"`
		}
		for i := 0; i < len(node.Content); i += 2 {
			switch key := node.Content[i].Value; key {
			case "left", "op", "right":
			default:
				return fmt.Errorf("line %d: field %s not found in predicate entry", node.Content[i].Line, key)
			}
		}
		if err := node.Decode(&parts); err != nil {
			return err
		}
		e.Text = strings.Join([]string{parts.Left, parts.Op, parts.Right}, " ")
		return nil
	default:
		return fmt.Errorf("line %d: predicate entry must be text or a {left, op, right} map", node.Line)
	}
}

// CompileSetYAML parses a YAML predicate set document.
// Unknown fields are rejected.
func CompileSetYAML(data []byte) (*PredicateSet, error) {
	var doc yamlSet
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	set := &PredicateSet{
		Name:        doc.Name,
		Description: doc.Description,
	}
	for i, entry := range doc.Predicates {
		p, err := ParsePredicate(entry.Text)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("predicates[%d]", i),
				Message: fmt.Sprintf("line %d: %v", entry.Line, err),
				Err:     err,
			}
		}
		set.add(entry.Text, p)
	}
	return set, nil
}

func (s *PredicateSet) add(src string, p *ir.Predicate) {
	s.Predicates = append(s.Predicates, p)
	s.Sources = append(s.Sources, src)
}
