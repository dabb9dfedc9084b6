// Package metadata loads the parallel file: the YAML description of which
// functions and loops receive OpenMP or OpenACC directives.
package metadata

import (
	"errors"
	"fmt"
	"os"
)

// ErrMetadataFormat is returned for a parallel file that is not valid YAML
// or does not follow the functs.parallel layout.
var ErrMetadataFormat = errors.New("malformed parallel file")

// Target selects the directive set of a function entry.
type Target string

const (
	OpenMP  Target = "mp"
	OpenACC Target = "acc"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case OpenMP, OpenACC:
		return t, nil
	}
	return "", fmt.Errorf("unknown target %q (want %q or %q)", s, OpenMP, OpenACC)
}

// Family names accepted under each target.
const (
	FamilyParallel     = "parallel"
	FamilyFor          = "for"
	FamilyParallelFor  = "parallel_for"
	FamilyData         = "data"
	FamilyLoop         = "loop"
	FamilyParallelLoop = "parallel_loop"
)

var regionFamilies = map[Target]string{
	OpenMP:  FamilyParallel,
	OpenACC: FamilyData,
}

var loopFamilies = map[Target][]string{
	OpenMP:  {FamilyFor, FamilyParallelFor},
	OpenACC: {FamilyLoop, FamilyParallelLoop},
}

// Region is a directive that encloses a loop scope in braces.
type Region struct {
	// Scope is the index of the first enclosed loop; nil when unset.
	Scope   *int
	Clauses Clauses
}

// LoopDirective is a directive placed right above loop Nro.
type LoopDirective struct {
	Nro     int
	Clauses Clauses
}

// Family is one directive family of a function entry, either a region or a
// list of loop directives.
type Family struct {
	Name   string
	Region *Region
	Loops  []LoopDirective
}

// FunctionDirectives is the directive bundle of one function for one target.
type FunctionDirectives struct {
	Function string
	Target   Target
	Families []Family
}

// Region returns the region family with the given name.
func (d FunctionDirectives) Region(name string) (*Region, bool) {
	for _, f := range d.Families {
		if f.Name == name && f.Region != nil {
			return f.Region, true
		}
	}
	return nil, false
}

// LoopFamilies returns the loop families whose name is in names, in the
// order they were declared.
func (d FunctionDirectives) LoopFamilies(names ...string) []Family {
	var out []Family
	for _, f := range d.Families {
		if f.Region != nil {
			continue
		}
		for _, n := range names {
			if f.Name == n {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

type functionEntry struct {
	name    string
	targets map[Target]FunctionDirectives
}

// Spec is a parsed parallel file.
type Spec struct {
	Name        string
	Description string
	Version     string

	declared  []string
	functions []functionEntry
}

// Declared returns the functs.all list.
func (s *Spec) Declared() []string {
	return append([]string(nil), s.declared...)
}

// DirectivesFor returns the bundles of every function that has an entry for
// target, in document order.
func (s *Spec) DirectivesFor(target Target) []FunctionDirectives {
	var out []FunctionDirectives
	for _, f := range s.functions {
		if d, ok := f.targets[target]; ok {
			out = append(out, d)
		}
	}
	return out
}

// LoadFile reads and parses a parallel file from disk.
func LoadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parallel file: %w", err)
	}
	return Parse(data)
}
