package metadata

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Parse decodes a parallel file. Mapping order is preserved: functions and
// clauses keep the order in which they appear in the document.
func Parse(data []byte) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFormat, err)
	}
	return Decode(&doc)
}

// FromValue builds a Spec from an already decoded value such as a
// map[string]any. Go maps carry no order, so function order follows the
// YAML encoder (sorted keys).
func FromValue(v any) (*Spec, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFormat, err)
	}
	return Decode(&n)
}

// Decode builds a Spec from a YAML node tree.
func Decode(root *yaml.Node) (*Spec, error) {
	top := resolve(root)
	if top != nil && top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = resolve(top.Content[0])
	}
	if top == nil || top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document root must be a mapping", ErrMetadataFormat)
	}

	spec := &Spec{
		Name:        scalarOf(lookup(top, "name")),
		Description: scalarOf(lookup(top, "description")),
		Version:     scalarOf(lookup(top, "version")),
	}

	functs := lookup(top, "functs")
	if functs == nil || functs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: missing functs mapping", ErrMetadataFormat)
	}

	if all := lookup(functs, "all"); all != nil && !isNull(all) {
		items, err := scalarList(all)
		if err != nil {
			return nil, fmt.Errorf("%w: functs.all: %v", ErrMetadataFormat, err)
		}
		spec.declared = items
	}

	parallel := lookup(functs, "parallel")
	if parallel == nil || parallel.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: missing functs.parallel mapping", ErrMetadataFormat)
	}

	for i := 0; i+1 < len(parallel.Content); i += 2 {
		name := parallel.Content[i].Value
		entry, err := decodeFunction(name, resolve(parallel.Content[i+1]))
		if err != nil {
			return nil, err
		}
		spec.functions = append(spec.functions, entry)
	}
	return spec, nil
}

func decodeFunction(name string, n *yaml.Node) (functionEntry, error) {
	entry := functionEntry{name: name, targets: map[Target]FunctionDirectives{}}
	if isNull(n) {
		return entry, nil
	}
	if n.Kind != yaml.MappingNode {
		return entry, formatErr(n, "functs.parallel.%s must be a mapping", name)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		target, err := ParseTarget(key)
		if err != nil {
			log.Debug().Str("function", name).Str("key", key).Msg("metadata.target.skip")
			continue
		}
		d, err := decodeTarget(name, target, resolve(n.Content[i+1]))
		if err != nil {
			return entry, err
		}
		entry.targets[target] = d
	}
	return entry, nil
}

func decodeTarget(fn string, target Target, n *yaml.Node) (FunctionDirectives, error) {
	d := FunctionDirectives{Function: fn, Target: target}
	if isNull(n) {
		return d, nil
	}
	if n.Kind != yaml.MappingNode {
		return d, formatErr(n, "functs.parallel.%s.%s must be a mapping", fn, target)
	}

	path := func(family string) string {
		return fmt.Sprintf("functs.parallel.%s.%s.%s", fn, target, family)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		family := n.Content[i].Value
		value := resolve(n.Content[i+1])

		switch {
		case family == regionFamilies[target]:
			r, err := decodeRegion(path(family), value)
			if err != nil {
				return d, err
			}
			d.Families = append(d.Families, Family{Name: family, Region: r})
		case isLoopFamily(target, family):
			loops, err := decodeLoops(path(family), value)
			if err != nil {
				return d, err
			}
			d.Families = append(d.Families, Family{Name: family, Loops: loops})
		default:
			log.Debug().Str("path", path(family)).Msg("metadata.family.skip")
		}
	}
	return d, nil
}

func isLoopFamily(target Target, family string) bool {
	for _, f := range loopFamilies[target] {
		if f == family {
			return true
		}
	}
	return false
}

func decodeRegion(path string, n *yaml.Node) (*Region, error) {
	r := &Region{}
	if isNull(n) {
		return r, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, formatErr(n, "%s must be a mapping", path)
	}

	if s := lookup(n, "scope"); s != nil && !isNull(s) {
		v, err := intOf(s)
		if err != nil {
			return nil, formatErr(s, "%s.scope: %v", path, err)
		}
		r.Scope = &v
	}
	clauses, err := decodeClauses(path, lookup(n, "clauses"))
	if err != nil {
		return nil, err
	}
	r.Clauses = clauses
	return r, nil
}

func decodeLoops(path string, n *yaml.Node) ([]LoopDirective, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, formatErr(n, "%s must be a list", path)
	}

	loops := make([]LoopDirective, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if item.Kind != yaml.MappingNode {
			return nil, formatErr(item, "%s must be a mapping", itemPath)
		}
		nro := lookup(item, "nro")
		if nro == nil || isNull(nro) {
			return nil, formatErr(item, "%s.nro is required", itemPath)
		}
		v, err := intOf(nro)
		if err != nil {
			return nil, formatErr(nro, "%s.nro: %v", itemPath, err)
		}
		clauses, err := decodeClauses(itemPath, lookup(item, "clauses"))
		if err != nil {
			return nil, err
		}
		loops = append(loops, LoopDirective{Nro: v, Clauses: clauses})
	}
	return loops, nil
}

func decodeClauses(path string, n *yaml.Node) (Clauses, error) {
	if n == nil || isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, formatErr(n, "%s.clauses must be a mapping", path)
	}

	clauses := make(Clauses, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		value := resolve(n.Content[i+1])

		var cv ClauseValue
		switch {
		case isNull(value):
			cv = FlagValue()
		case value.Kind == yaml.ScalarNode:
			cv = ScalarValue(value.Value)
		case value.Kind == yaml.SequenceNode:
			items, err := scalarList(value)
			if err != nil {
				return nil, formatErr(value, "%s.clauses.%s: %v", path, name, err)
			}
			cv = ListValue(items...)
		default:
			return nil, formatErr(value, "%s.clauses.%s must be empty, a scalar or a list", path, name)
		}
		clauses = append(clauses, Clause{Name: name, Value: cv})
	}
	return clauses, nil
}

func formatErr(n *yaml.Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if n != nil && n.Line > 0 {
		return fmt.Errorf("%w: line %d: %s", ErrMetadataFormat, n.Line, msg)
	}
	return fmt.Errorf("%w: %s", ErrMetadataFormat, msg)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}

func scalarOf(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return ""
	}
	return n.Value
}

func intOf(n *yaml.Node) (int, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("expected an integer")
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %q", n.Value)
	}
	return v, nil
}

func scalarList(n *yaml.Node) ([]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a list")
	}
	items := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		item = resolve(item)
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("list items must be scalars")
		}
		items = append(items, item.Value)
	}
	return items, nil
}
