package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForExtension(t *testing.T) {
	spec := ForExtension(".c")
	require.NotNil(t, spec)
	assert.Equal(t, C, spec.Language)

	l, ok := LanguageForExtension(".c")
	assert.True(t, ok)
	assert.Equal(t, C, l)
}

func TestForLanguage(t *testing.T) {
	for _, l := range AllLanguages() {
		assert.NotNil(t, ForLanguage(l), "ForLanguage(%s)", l)
	}
}

func TestUnknownExtension(t *testing.T) {
	assert.Nil(t, ForExtension(".xyz"))
	_, ok := LanguageForExtension(".py")
	assert.False(t, ok)
}

func TestCSpecKinds(t *testing.T) {
	spec := ForLanguage(C)
	require.NotNil(t, spec)

	assert.True(t, spec.IsFunction("function_definition"))
	assert.True(t, spec.IsLoop("for_statement"))
	assert.False(t, spec.IsLoop("while_statement"))
	assert.True(t, spec.IsBlock("compound_statement"))
	assert.True(t, spec.IsImport("preproc_include"))
	assert.False(t, spec.IsImport("preproc_def"))
	assert.True(t, spec.IsName("identifier"))
}
