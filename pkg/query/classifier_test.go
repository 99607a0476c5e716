package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
)

func TestClassify_FindAll(t *testing.T) {
	tpl, err := Classify("")
	require.NoError(t, err)
	assert.Equal(t, KindFindAll, tpl.Kind)
	assert.Empty(t, tpl.Nodes)
}

func TestClassify_PathVariable(t *testing.T) {
	tpl, err := Classify("{id}")
	require.NoError(t, err)
	assert.Equal(t, KindFindByPathVariable, tpl.Kind)
	require.Len(t, tpl.Nodes, 1)
	assert.Equal(t, "id", tpl.Nodes[0].Field)
	assert.Equal(t, OpEq, tpl.Nodes[0].Operator)
	assert.Equal(t, "id", tpl.Nodes[0].Placeholder)
}

func TestClassify_PathVariablePair(t *testing.T) {
	tests := []struct {
		selector   string
		combinator Combinator
	}{
		{"{name}and{age}", CombinatorAnd},
		{"{name}or{age}", CombinatorOr},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			tpl, err := Classify(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, KindFindByPathVariable, tpl.Kind)
			assert.Equal(t, tt.combinator, tpl.Combinator)
			require.Len(t, tpl.Nodes, 2)
			assert.Equal(t, "name", tpl.Nodes[0].Field)
			assert.Equal(t, "age", tpl.Nodes[1].Field)
		})
	}
}

func TestClassify_FindByField(t *testing.T) {
	tpl, err := Classify("findByName")
	require.NoError(t, err)
	assert.Equal(t, KindFindByField, tpl.Kind)
	require.Len(t, tpl.Nodes, 1)
	assert.Equal(t, "name", tpl.Nodes[0].Field)
	assert.Equal(t, OpEq, tpl.Nodes[0].Operator)
	assert.Equal(t, "name", tpl.Nodes[0].Placeholder)
}

func TestClassify_FindByConjunction(t *testing.T) {
	tpl, err := Classify("findByNameAndAge")
	require.NoError(t, err)
	assert.Equal(t, KindFindByConjunction, tpl.Kind)
	assert.Equal(t, CombinatorAnd, tpl.Combinator)
	require.Len(t, tpl.Nodes, 2)
	assert.Equal(t, "name", tpl.Nodes[0].Field)
	assert.Equal(t, "age", tpl.Nodes[1].Field)

	tpl, err = Classify("findByCityOrCountry")
	require.NoError(t, err)
	assert.Equal(t, KindFindByConjunction, tpl.Kind)
	assert.Equal(t, CombinatorOr, tpl.Combinator)
}

func TestClassify_FindByComparison(t *testing.T) {
	tests := []struct {
		selector string
		field    string
		operator Operator
	}{
		{"findByAgeLessThan", "age", OpLt},
		{"findByAgeGreaterThan", "age", OpGt},
		{"findByStatusIs", "status", OpEq},
		{"findByStatusEquals", "status", OpEq},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			tpl, err := Classify(tt.selector)
			require.NoError(t, err)
			assert.Equal(t, KindFindByComparison, tpl.Kind)
			require.Len(t, tpl.Nodes, 1)
			assert.Equal(t, tt.field, tpl.Nodes[0].Field)
			assert.Equal(t, tt.operator, tpl.Nodes[0].Operator)
		})
	}
}

func TestClassify_Invalid(t *testing.T) {
	tests := []string{
		"findBy",                  // no field
		"findByAgeLessThanTwenty", // trailing text after comparison keyword
		"findByNameAndAgeAndCity", // keyword inside conjunction side
		"{name}xor{age}",          // unknown pair combinator
		"{1name}",                 // bad identifier
		"users",                   // bare literal selector
	}
	for _, selector := range tests {
		t.Run(selector, func(t *testing.T) {
			_, err := Classify(selector)
			assert.ErrorIs(t, err, apperrors.ErrInvalidResourceDeclaration)
		})
	}
}

func TestTemplate_Bind(t *testing.T) {
	tpl, err := Classify("findByNameAndAge")
	require.NoError(t, err)

	filter, err := tpl.Bind(map[string]any{"name": "ada", "age": 36})
	require.NoError(t, err)
	assert.Equal(t, CombinatorAnd, filter.Combinator)
	require.Len(t, filter.Nodes, 2)
	assert.Equal(t, "ada", filter.Nodes[0].Value)
	assert.Equal(t, 36, filter.Nodes[1].Value)
}

func TestTemplate_Bind_MissingValue(t *testing.T) {
	tpl, err := Classify("findByName")
	require.NoError(t, err)

	_, err = tpl.Bind(map[string]any{"age": 36})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}
