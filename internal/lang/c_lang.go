package lang

func init() {
	Register(&LanguageSpec{
		Language:       C,
		FileExtensions: []string{".c"},
		FunctionNodeTypes: []string{
			"function_definition",
		},
		ModuleNodeTypes: []string{"translation_unit"},
		ImportNodeTypes: []string{"preproc_include"},

		LoopNodeTypes:   []string{"for_statement"},
		BlockNodeTypes:  []string{"compound_statement"},
		DeclaratorField: "declarator",
		NameNodeTypes:   []string{"identifier", "field_identifier"},
	})
}
