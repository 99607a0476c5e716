package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
)

// Reserved keywords of the findBy naming convention. The classifier excludes
// these from being interpreted as field names, which means a field literally
// named "And" (or containing a reserved substring, e.g. "android" contains
// "and" once camel-cased) is not supported by this convention. That is a
// documented limitation of the convention, not something the classifier
// tries to repair.
var reservedKeywords = []string{
	"And",
	"Or",
	"LessThan",
	"GreaterThan",
	"Between",
	"Equals",
	"Like",
	"In",
	"Not",
	"Is",
}

// Comparison keywords mapped to their symbolic operators. Anything reserved
// but not listed here falls back to equality.
var comparisonOperators = map[string]Operator{
	"LessThan":    OpLt,
	"GreaterThan": OpGt,
	"Is":          OpEq,
	"Equals":      OpEq,
}

const findByPrefix = "findBy"

// pathVarSelector matches selectors built from path-variable markers:
// "{name}" or "{name}and{age}" / "{name}or{age}".
var pathVarSelector = regexp.MustCompile(`^\{([A-Za-z][A-Za-z0-9_]*)\}(?:(and|or)\{([A-Za-z][A-Za-z0-9_]*)\})?$`)

// Classify parses a declared selector segment into a query template.
// The selector is the second path segment of a declaration
// ("/{collection}/{selector}"); an empty selector classifies as FindAll.
func Classify(selector string) (Template, error) {
	if selector == "" {
		return Template{Kind: KindFindAll}, nil
	}

	if strings.HasPrefix(selector, "{") {
		return classifyPathVariables(selector)
	}

	if strings.HasPrefix(selector, findByPrefix) && len(selector) > len(findByPrefix) {
		return classifyFindBy(selector[len(findByPrefix):])
	}

	return Template{}, fmt.Errorf("%w: unrecognized selector %q", apperrors.ErrInvalidResourceDeclaration, selector)
}

func classifyPathVariables(selector string) (Template, error) {
	m := pathVarSelector.FindStringSubmatch(selector)
	if m == nil {
		return Template{}, fmt.Errorf("%w: malformed path-variable selector %q", apperrors.ErrInvalidResourceDeclaration, selector)
	}

	first := m[1]
	tpl := Template{
		Kind:       KindFindByPathVariable,
		Combinator: CombinatorAnd,
		Nodes:      []Node{{Field: first, Operator: OpEq, Placeholder: first}},
	}

	if m[2] != "" {
		second := m[3]
		tpl.Combinator = Combinator(m[2])
		tpl.Nodes = append(tpl.Nodes, Node{Field: second, Operator: OpEq, Placeholder: second})
	}

	return tpl, nil
}

func classifyFindBy(remainder string) (Template, error) {
	// Single field equality: the remainder is free of every reserved keyword.
	if !containsAnyKeyword(remainder) {
		field := lowerFirst(remainder)
		return Template{
			Kind:       KindFindByField,
			Combinator: CombinatorAnd,
			Nodes:      []Node{{Field: field, Operator: OpEq, Placeholder: field}},
		}, nil
	}

	// Conjunction of two named fields. Checked before comparisons so that
	// "NameAndAge" never classifies as a comparison.
	for _, comb := range []string{"And", "Or"} {
		left, right, found := strings.Cut(remainder, comb)
		if !found || left == "" || right == "" {
			continue
		}
		if containsAnyKeyword(left) || containsAnyKeyword(right) {
			return Template{}, fmt.Errorf("%w: selector findBy%s mixes combinators and comparisons", apperrors.ErrInvalidResourceDeclaration, remainder)
		}
		lf, rf := lowerFirst(left), lowerFirst(right)
		return Template{
			Kind:       KindFindByConjunction,
			Combinator: Combinator(strings.ToLower(comb)),
			Nodes: []Node{
				{Field: lf, Operator: OpEq, Placeholder: lf},
				{Field: rf, Operator: OpEq, Placeholder: rf},
			},
		}, nil
	}

	// Comparison: field name followed by a reserved comparison keyword.
	// Unrecognized comparison keywords fall back to equality.
	for _, kw := range reservedKeywords {
		left, right, found := strings.Cut(remainder, kw)
		if !found || left == "" || right != "" {
			continue
		}
		op, ok := comparisonOperators[kw]
		if !ok {
			op = OpEq
		}
		field := lowerFirst(left)
		return Template{
			Kind:       KindFindByComparison,
			Combinator: CombinatorAnd,
			Nodes:      []Node{{Field: field, Operator: op, Placeholder: field}},
		}, nil
	}

	return Template{}, fmt.Errorf("%w: selector findBy%s", apperrors.ErrInvalidResourceDeclaration, remainder)
}

func containsAnyKeyword(s string) bool {
	for _, kw := range reservedKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
