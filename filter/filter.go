/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package filter

import (
	"maps"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Reserved combinator keys.
const (
	OR  = "OR"
	AND = "AND"
	NOT = "NOT"
)

// Filter is a declarative condition tree. Each key is an attribute name mapped to
//   - a literal (implicit equality),
//   - an Op (one or more operators),
//   - a nested Filter (conditions on the attributes of a map attribute),
//
// or one of the reserved keys OR, AND, NOT mapped to a []Filter.
type Filter map[string]any

// Op holds the operators applied to one attribute. Nil operators are ignored.
type Op struct {
	Eq         any
	Ne         any
	G          any
	Ge         any
	L          any
	Le         any
	Between    []any
	In         []any
	Contains   any
	BeginsWith any
}

// Expression is a compiled condition: an expression string using #name and
// :value placeholders plus the maps binding them.
type Expression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// IsEmpty reports whether the expression places no constraint.
func (e Expression) IsEmpty() bool {
	return e.Expression == ""
}

// Merge returns the union of the name and value maps of a and b. The
// expression string of a is kept.
func Merge(a, b Expression) Expression {
	out := Expression{
		Expression: a.Expression,
		Names:      make(map[string]string, len(a.Names)+len(b.Names)),
		Values:     make(map[string]types.AttributeValue, len(a.Values)+len(b.Values)),
	}
	maps.Copy(out.Names, a.Names)
	maps.Copy(out.Names, b.Names)
	maps.Copy(out.Values, a.Values)
	maps.Copy(out.Values, b.Values)
	return out
}

// Eq is shorthand for Op{Eq: v}.
func Eq(v any) Op { return Op{Eq: v} }

// BeginsWith is shorthand for Op{BeginsWith: v}.
func BeginsWith(v any) Op { return Op{BeginsWith: v} }

// Between is shorthand for Op{Between: []any{lo, hi}}.
func Between(lo, hi any) Op { return Op{Between: []any{lo, hi}} }

// In is shorthand for Op{In: values}.
func In(values ...any) Op { return Op{In: values} }
