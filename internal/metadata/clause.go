package metadata

import "strings"

// ClauseKind tags the shape of a clause value.
type ClauseKind int

const (
	// Flag is a clause without arguments, e.g. gang.
	Flag ClauseKind = iota
	// Scalar is a clause with a single argument, e.g. num_threads(4).
	Scalar
	// List is a clause with an identifier list, e.g. private(i,j).
	List
)

func (k ClauseKind) String() string {
	switch k {
	case Flag:
		return "flag"
	case Scalar:
		return "scalar"
	case List:
		return "list"
	}
	return "unknown"
}

// ClauseValue is the argument of a clause.
type ClauseValue struct {
	Kind   ClauseKind
	Scalar string
	Items  []string
}

// FlagValue returns an argument-less clause value.
func FlagValue() ClauseValue { return ClauseValue{Kind: Flag} }

// ScalarValue returns a single-argument clause value.
func ScalarValue(v string) ClauseValue { return ClauseValue{Kind: Scalar, Scalar: v} }

// ListValue returns a list clause value.
func ListValue(items ...string) ClauseValue { return ClauseValue{Kind: List, Items: items} }

func (v ClauseValue) String() string {
	switch v.Kind {
	case Scalar:
		return v.Scalar
	case List:
		return strings.Join(v.Items, ",")
	}
	return ""
}

// Clause is a named directive modifier.
type Clause struct {
	Name  string
	Value ClauseValue
}

// Clauses keeps clauses in the order they were written.
type Clauses []Clause

// Get returns the value of the named clause.
func (c Clauses) Get(name string) (ClauseValue, bool) {
	for _, cl := range c {
		if cl.Name == name {
			return cl.Value, true
		}
	}
	return ClauseValue{}, false
}
