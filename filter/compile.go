/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MaxiMittel/dynormo/schema"
)

var invalidPlaceholderChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Compile translates a filter tree into a filter expression. Fields are
// visited in sorted order. Placeholders are derived from the field path and
// qualified by combinator name and position inside OR/AND/NOT branches. When
// the derived placeholder is already bound to something else (a sanitized
// name, a nested path or an operator suffix producing the same text) the
// next free numbered form is used instead, e.g. :a_b_1, so every
// placeholder of the result is unique.
//
// A tree that constrains nothing (empty, or only nil values) compiles to an
// empty Expression.
func Compile(f Filter) (Expression, error) {
	return compile(f, AND, "")
}

// CompileDisjoint compiles f like Compile but never rebinds a placeholder of
// taken, so the result can be merged with them. A name placeholder is shared
// only when it already refers to the same attribute name.
func CompileDisjoint(f Filter, taken ...Expression) (Expression, error) {
	return compile(f, AND, "", taken...)
}

func compile(f Filter, combinator, prefix string, taken ...Expression) (Expression, error) {
	c := &compiler{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
		taken:  taken,
	}
	expr, err := c.level(f, combinator, prefix)
	if err != nil {
		return Expression{}, err
	}
	return Expression{Expression: expr, Names: c.names, Values: c.values}, nil
}

type compiler struct {
	names  map[string]string
	values map[string]types.AttributeValue
	taken  []Expression
}

func (c *compiler) level(f Filter, combinator, prefix string) (string, error) {
	var parts []string
	for _, key := range sortedKeys(f) {
		value := f[key]
		if isCombinator(key) {
			part, err := c.combine(key, value, prefix)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, part)
			}
			continue
		}
		frags, err := c.field([]string{key}, value, prefix)
		if err != nil {
			return "", err
		}
		parts = append(parts, frags...)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " "+combinator+" ") + ")", nil
}

func (c *compiler) combine(key string, value any, prefix string) (string, error) {
	children, ok := asFilters(value)
	if !ok {
		return "", nil
	}
	var sub []string
	for i, child := range children {
		expr, err := c.level(child, AND, prefix+key+"_"+strconv.Itoa(i)+"_")
		if err != nil {
			return "", err
		}
		if expr != "" {
			sub = append(sub, expr)
		}
	}
	if len(sub) == 0 {
		return "", nil
	}
	switch key {
	case OR:
		return "(" + strings.Join(sub, " OR ") + ")", nil
	case NOT:
		return "(NOT (" + strings.Join(sub, " AND ") + "))", nil
	default:
		return "(" + strings.Join(sub, " AND ") + ")", nil
	}
}

func (c *compiler) field(path []string, value any, prefix string) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Op:
		return c.operators(path, v, prefix)
	case *Op:
		if v == nil {
			return nil, nil
		}
		return c.operators(path, *v, prefix)
	case Filter:
		return c.nested(path, v, prefix)
	case map[string]any:
		return c.nested(path, Filter(v), prefix)
	}

	name := c.name(path, prefix)
	placeholder, err := c.bind(":"+base(path, prefix), value)
	if err != nil {
		return nil, fmt.Errorf("filter on %s: %w", strings.Join(path, "."), err)
	}
	return []string{name + " = " + placeholder}, nil
}

func (c *compiler) nested(path []string, f Filter, prefix string) ([]string, error) {
	var frags []string
	for _, key := range sortedKeys(f) {
		if isCombinator(key) {
			continue
		}
		child, err := c.field(append(slices.Clone(path), key), f[key], prefix)
		if err != nil {
			return nil, err
		}
		frags = append(frags, child...)
	}
	return frags, nil
}

type operator struct {
	suffix string
	value  any
	render func(name, placeholder string) string
}

func (c *compiler) operators(path []string, op Op, prefix string) ([]string, error) {
	ops := []operator{
		{"eq", op.Eq, binary("=")},
		{"ne", op.Ne, binary("<>")},
		{"g", op.G, binary(">")},
		{"ge", op.Ge, binary(">=")},
		{"l", op.L, binary("<")},
		{"le", op.Le, binary("<=")},
	}
	present := 0
	for _, o := range ops {
		if o.value != nil {
			present++
		}
	}
	if len(op.Between) == 2 {
		present++
	}
	if len(op.In) > 0 {
		present++
	}
	if op.Contains != nil {
		present++
	}
	if op.BeginsWith != nil {
		present++
	}
	if present == 0 {
		return nil, nil
	}

	name := c.name(path, prefix)
	b := base(path, prefix)
	placeholder := func(suffix string) string {
		if present > 1 {
			return ":" + b + "_" + suffix
		}
		return ":" + b
	}
	wrap := func(err error) error {
		return fmt.Errorf("filter on %s: %w", strings.Join(path, "."), err)
	}

	var frags []string
	for _, o := range ops {
		if o.value == nil {
			continue
		}
		ph, err := c.bind(placeholder(o.suffix), o.value)
		if err != nil {
			return nil, wrap(err)
		}
		frags = append(frags, o.render(name, ph))
	}

	if len(op.Between) == 2 {
		ph := placeholder("between")
		lo, err := c.bind(ph+"0", op.Between[0])
		if err != nil {
			return nil, wrap(err)
		}
		hi, err := c.bind(ph+"1", op.Between[1])
		if err != nil {
			return nil, wrap(err)
		}
		frags = append(frags, fmt.Sprintf("%s BETWEEN %s AND %s", name, lo, hi))
	}

	if len(op.In) > 0 {
		ph := placeholder("in")
		list := make([]string, len(op.In))
		for i, v := range op.In {
			bound, err := c.bind(ph+strconv.Itoa(i), v)
			if err != nil {
				return nil, wrap(err)
			}
			list[i] = bound
		}
		frags = append(frags, fmt.Sprintf("%s IN (%s)", name, strings.Join(list, ", ")))
	}

	if op.Contains != nil {
		ph, err := c.bind(placeholder("contains"), op.Contains)
		if err != nil {
			return nil, wrap(err)
		}
		frags = append(frags, fmt.Sprintf("contains(%s, %s)", name, ph))
	}

	if op.BeginsWith != nil {
		ph, err := c.bind(placeholder("beginsWith"), op.BeginsWith)
		if err != nil {
			return nil, wrap(err)
		}
		frags = append(frags, fmt.Sprintf("begins_with(%s, %s)", name, ph))
	}
	return frags, nil
}

func binary(operator string) func(name, placeholder string) string {
	return func(name, placeholder string) string {
		return name + " " + operator + " " + placeholder
	}
}

// name registers one name placeholder per path segment and returns the
// attribute reference, e.g. #profile.#profile_age for a nested path.
func (c *compiler) name(path []string, prefix string) string {
	refs := make([]string, len(path))
	for i := range path {
		attr := path[i]
		ph := claim("#"+base(path[:i+1], prefix), func(ph string) bool {
			bound, ok := c.boundName(ph)
			return !ok || bound == attr
		})
		c.names[ph] = attr
		refs[i] = ph
	}
	return strings.Join(refs, ".")
}

// bind marshals v under placeholder, or under the next free numbered form
// when placeholder is already bound, and returns the placeholder used.
func (c *compiler) bind(placeholder string, v any) (string, error) {
	av, err := MarshalValue(v)
	if err != nil {
		return "", err
	}
	ph := claim(placeholder, func(ph string) bool { return !c.boundValue(ph) })
	c.values[ph] = av
	return ph, nil
}

func (c *compiler) boundName(ph string) (string, bool) {
	if attr, ok := c.names[ph]; ok {
		return attr, true
	}
	for _, e := range c.taken {
		if attr, ok := e.Names[ph]; ok {
			return attr, true
		}
	}
	return "", false
}

func (c *compiler) boundValue(ph string) bool {
	if _, ok := c.values[ph]; ok {
		return true
	}
	for _, e := range c.taken {
		if _, ok := e.Values[ph]; ok {
			return true
		}
	}
	return false
}

// claim returns preferred if usable, otherwise preferred_1, preferred_2, ...
func claim(preferred string, usable func(string) bool) string {
	if usable(preferred) {
		return preferred
	}
	for i := 1; ; i++ {
		if ph := preferred + "_" + strconv.Itoa(i); usable(ph) {
			return ph
		}
	}
}

// MarshalValue converts a filter operand into an attribute value. Dates are
// stored as ISO-8601 strings and compared as such.
func MarshalValue(v any) (types.AttributeValue, error) {
	if av, ok := v.(types.AttributeValue); ok {
		return av, nil
	}
	if schema.IsDate(v) {
		s, err := schema.FormatDate(v)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return av, nil
}

func base(path []string, prefix string) string {
	return prefix + invalidPlaceholderChars.ReplaceAllString(strings.Join(path, "_"), "_")
}

func isCombinator(key string) bool {
	return key == OR || key == AND || key == NOT
}

func asFilters(v any) ([]Filter, bool) {
	switch list := v.(type) {
	case []Filter:
		return list, true
	case []map[string]any:
		out := make([]Filter, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	case []any:
		out := make([]Filter, 0, len(list))
		for _, item := range list {
			switch m := item.(type) {
			case Filter:
				out = append(out, m)
			case map[string]any:
				out = append(out, m)
			}
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(f Filter) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
