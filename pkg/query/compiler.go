package query

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
)

// FieldType is the inferred scalar type of a request-body field.
type FieldType string

const (
	FieldBoolean FieldType = "boolean"
	FieldNumber  FieldType = "number"
	FieldString  FieldType = "string"
)

// BodyModel is the request-body shape derived for write resources, attached
// to the owning container's model set.
type BodyModel struct {
	// Name is the singularized collection name.
	Name   string               `json:"name"`
	Fields map[string]FieldType `json:"fields"`
}

// Compiled is the output of compiling one resource declaration.
type Compiled struct {
	Collection string
	Template   Template
	// Body is non-nil for write verbs only.
	Body *BodyModel
}

// Compile classifies a declared path + HTTP verb and produces a
// provider-neutral query template. For write verbs (POST/PUT) it additionally
// derives a request-body model from the sample body: single-document update
// for PUT, batch-capable insert otherwise.
func Compile(path, verb string, sampleBody map[string]any) (*Compiled, error) {
	collection, selector, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	switch verb {
	case http.MethodGet, http.MethodDelete:
		tpl, err := Classify(selector)
		if err != nil {
			return nil, err
		}
		return &Compiled{Collection: collection, Template: tpl}, nil

	case http.MethodPost, http.MethodPut:
		kind := KindInsertMany
		if verb == http.MethodPut {
			kind = KindUpdateOne
		}
		tpl := Template{Kind: kind}
		if selector != "" {
			// Write selectors only support path-variable targeting
			// (e.g. PUT /users/{id}).
			sel, err := Classify(selector)
			if err != nil {
				return nil, err
			}
			if sel.Kind != KindFindByPathVariable {
				return nil, fmt.Errorf("%w: write verb %s cannot use selector %q", apperrors.ErrInvalidResourceDeclaration, verb, selector)
			}
			tpl.Combinator = sel.Combinator
			tpl.Nodes = sel.Nodes
		}
		return &Compiled{
			Collection: collection,
			Template:   tpl,
			Body:       InferBodyModel(collection, sampleBody),
		}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported verb %q", apperrors.ErrInvalidResourceDeclaration, verb)
	}
}

// InferBodyModel derives a field-name to scalar-type mapping from a sample
// parsed body. Types are tested in priority order: boolean, then numeric,
// then string. The model is named after the singular form of the collection.
func InferBodyModel(collection string, sample map[string]any) *BodyModel {
	model := &BodyModel{
		Name:   inflection.Singular(collection),
		Fields: make(map[string]FieldType, len(sample)),
	}
	for name, value := range sample {
		model.Fields[name] = inferFieldType(value)
	}
	return model
}

func inferFieldType(value any) FieldType {
	switch v := value.(type) {
	case bool:
		return FieldBoolean
	case float64, float32, int, int32, int64:
		return FieldNumber
	case string:
		if _, err := strconv.ParseBool(v); err == nil {
			return FieldBoolean
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return FieldNumber
		}
		return FieldString
	default:
		return FieldString
	}
}

// SortedFieldNames returns the model's field names in stable order.
func (m *BodyModel) SortedFieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// splitPath breaks a declaration path into its collection segment and
// optional selector segment.
func splitPath(path string) (collection, selector string, err error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty path", apperrors.ErrInvalidResourceDeclaration)
	}
	segments := strings.Split(trimmed, "/")
	switch len(segments) {
	case 1:
		return segments[0], "", nil
	case 2:
		return segments[0], segments[1], nil
	default:
		return "", "", fmt.Errorf("%w: path %q has more than two segments", apperrors.ErrInvalidResourceDeclaration, path)
	}
}
