package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/codeoncesoftware/grizzly-core/pkg/query"
)

// FilterToBSON renders a bound filter as a MongoDB filter document.
// An empty filter matches everything (find-all).
func FilterToBSON(filter query.BoundFilter) bson.M {
	if len(filter.Nodes) == 0 {
		return bson.M{}
	}

	if len(filter.Nodes) == 1 {
		n := filter.Nodes[0]
		return bson.M{n.Field: bson.M{string(n.Operator): n.Value}}
	}

	clauses := make(bson.A, 0, len(filter.Nodes))
	for _, n := range filter.Nodes {
		clauses = append(clauses, bson.M{n.Field: bson.M{string(n.Operator): n.Value}})
	}

	combinator := "$and"
	if filter.Combinator == query.CombinatorOr {
		combinator = "$or"
	}
	return bson.M{combinator: clauses}
}
