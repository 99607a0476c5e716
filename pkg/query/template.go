// Package query turns declared resource paths into provider-neutral query
// templates and binds request values into executable filters.
package query

import "fmt"

// Kind classifies the query shape a declared resource compiles to.
type Kind string

const (
	KindFindAll            Kind = "FIND_ALL"
	KindFindByPathVariable Kind = "FIND_BY_PATH_VARIABLE"
	KindFindByField        Kind = "FIND_BY_FIELD"
	KindFindByConjunction  Kind = "FIND_BY_FIELD_CONJUNCTION"
	KindFindByComparison   Kind = "FIND_BY_COMPARISON"
	KindInsertOne          Kind = "INSERT_ONE"
	KindInsertMany         Kind = "INSERT_MANY"
	KindUpdateOne          Kind = "UPDATE_ONE"
)

// Operator is a provider-neutral comparison operator.
type Operator string

const (
	OpEq Operator = "$eq"
	OpLt Operator = "$lt"
	OpGt Operator = "$gt"
)

// Combinator joins multiple condition nodes.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// Node is one condition of a query template. Placeholder names the source
// path/query variable whose literal request value gets substituted at
// resolution time.
type Node struct {
	Field       string   `json:"field"`
	Operator    Operator `json:"operator"`
	Placeholder string   `json:"placeholder"`
}

// Template is the provider-neutral, placeholder-parameterized representation
// of a declared resource's query, prior to literal-value binding.
type Template struct {
	Kind       Kind       `json:"kind"`
	Combinator Combinator `json:"combinator,omitempty"`
	Nodes      []Node     `json:"nodes,omitempty"`
}

// BoundNode is a template node with its placeholder substituted by a literal
// request value.
type BoundNode struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// BoundFilter is a fully substituted filter, ready for rendering by a
// provider adapter.
type BoundFilter struct {
	Combinator Combinator  `json:"combinator,omitempty"`
	Nodes      []BoundNode `json:"nodes,omitempty"`
}

// Bind substitutes literal values into the template's placeholders. Every
// placeholder must be present in values.
func (t Template) Bind(values map[string]any) (BoundFilter, error) {
	bound := BoundFilter{Combinator: t.Combinator}
	for _, n := range t.Nodes {
		v, ok := values[n.Placeholder]
		if !ok {
			return BoundFilter{}, fmt.Errorf("no value for placeholder %q", n.Placeholder)
		}
		bound.Nodes = append(bound.Nodes, BoundNode{Field: n.Field, Operator: n.Operator, Value: v})
	}
	return bound, nil
}
