package relational

import (
	"fmt"
	"strings"

	"github.com/codeoncesoftware/grizzly-core/pkg/query"
)

var sqlOperators = map[query.Operator]string{
	query.OpEq: "=",
	query.OpLt: "<",
	query.OpGt: ">",
}

// FilterToSQL renders a bound filter as a WHERE clause with dialect-specific
// bind placeholders, returning the clause and its ordered arguments. An
// empty filter yields an empty clause (find-all).
func FilterToSQL(filter query.BoundFilter, dialect string) (string, []any) {
	if len(filter.Nodes) == 0 {
		return "", nil
	}

	combinator := " AND "
	if filter.Combinator == query.CombinatorOr {
		combinator = " OR "
	}

	clauses := make([]string, 0, len(filter.Nodes))
	args := make([]any, 0, len(filter.Nodes))
	for i, n := range filter.Nodes {
		op, ok := sqlOperators[n.Operator]
		if !ok {
			op = "="
		}
		clauses = append(clauses, fmt.Sprintf("%s %s %s",
			quoteIdentifier(dialect, n.Field), op, placeholder(dialect, i+1)))
		args = append(args, n.Value)
	}

	return strings.Join(clauses, combinator), args
}
