package lang

import "slices"

// Language represents a supported source language.
type Language string

const (
	C Language = "c"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{C}
}

// LanguageSpec defines the tree-sitter node kinds the code model relies on.
type LanguageSpec struct {
	Language          Language
	FileExtensions    []string
	FunctionNodeTypes []string
	ModuleNodeTypes   []string
	ImportNodeTypes   []string

	// LoopNodeTypes lists the loop constructs that can carry a loop directive.
	LoopNodeTypes []string
	// BlockNodeTypes lists brace-delimited statement kinds. A loop whose body
	// is one of these ends on the block's closing line.
	BlockNodeTypes []string
	// DeclaratorField is the field holding a function's declarator chain.
	DeclaratorField string
	// NameNodeTypes lists the node kinds that terminate a declarator chain.
	NameNodeTypes []string
}

// IsFunction reports whether kind is a function definition node.
func (s *LanguageSpec) IsFunction(kind string) bool {
	return slices.Contains(s.FunctionNodeTypes, kind)
}

// IsLoop reports whether kind is a loop node.
func (s *LanguageSpec) IsLoop(kind string) bool {
	return slices.Contains(s.LoopNodeTypes, kind)
}

// IsBlock reports whether kind is a brace-delimited block.
func (s *LanguageSpec) IsBlock(kind string) bool {
	return slices.Contains(s.BlockNodeTypes, kind)
}

// IsImport reports whether kind is an include directive.
func (s *LanguageSpec) IsImport(kind string) bool {
	return slices.Contains(s.ImportNodeTypes, kind)
}

// IsName reports whether kind terminates a declarator chain.
func (s *LanguageSpec) IsName(kind string) bool {
	return slices.Contains(s.NameNodeTypes, kind)
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".c").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}
