package storage

import (
	"fmt"

	"github.com/c360/sensorstore/errors"
)

// QueryKind is the tag of a query expression node.
type QueryKind int

// Supported expression node kinds.
const (
	// KindEq matches documents whose field equals the value.
	KindEq QueryKind = iota
	// KindGte matches documents whose field is >= the value.
	KindGte
	// KindLte matches documents whose field is <= the value.
	KindLte
	// KindIn matches documents whose field is a member of the value set.
	KindIn
	// KindAnd is the conjunction of its child expressions.
	KindAnd
)

// String returns the string representation of QueryKind
func (k QueryKind) String() string {
	switch k {
	case KindEq:
		return "eq"
	case KindGte:
		return "gte"
	case KindLte:
		return "lte"
	case KindIn:
		return "in"
	case KindAnd:
		return "and"
	default:
		return "unknown"
	}
}

// Query is a small tagged-variant expression tree over named document fields:
// equality, range, and membership nodes joined by conjunction. Store adapters
// translate it into their native query language, so callers get dynamic
// predicates without runtime code execution.
type Query struct {
	Kind     QueryKind
	Field    string
	Value    any
	Values   []any
	Children []*Query
}

// Eq builds a field == value expression.
func Eq(field string, value any) *Query {
	return &Query{Kind: KindEq, Field: field, Value: value}
}

// Gte builds a field >= value expression.
func Gte(field string, value any) *Query {
	return &Query{Kind: KindGte, Field: field, Value: value}
}

// Lte builds a field <= value expression.
func Lte(field string, value any) *Query {
	return &Query{Kind: KindLte, Field: field, Value: value}
}

// In builds a field ∈ values expression.
func In(field string, values ...any) *Query {
	return &Query{Kind: KindIn, Field: field, Values: values}
}

// And joins expressions conjunctively.
func And(children ...*Query) *Query {
	return &Query{Kind: KindAnd, Children: children}
}

// Validate checks the tree for structural problems before translation.
func (q *Query) Validate() error {
	if q == nil {
		return errors.WrapInvalid(errors.ErrInvalidQuery, "storage", "Validate", "nil query")
	}

	switch q.Kind {
	case KindEq, KindGte, KindLte:
		if q.Field == "" {
			return errors.WrapInvalid(errors.ErrInvalidQuery, "storage", "Validate",
				fmt.Sprintf("%s node without a field", q.Kind))
		}
	case KindIn:
		if q.Field == "" {
			return errors.WrapInvalid(errors.ErrInvalidQuery, "storage", "Validate", "in node without a field")
		}
		if len(q.Values) == 0 {
			return errors.WrapInvalid(errors.ErrInvalidQuery, "storage", "Validate", "in node without values")
		}
	case KindAnd:
		if len(q.Children) == 0 {
			return errors.WrapInvalid(errors.ErrInvalidQuery, "storage", "Validate", "and node without children")
		}
		for _, child := range q.Children {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidQuery, "storage", "Validate", "unknown node kind")
	}

	return nil
}
