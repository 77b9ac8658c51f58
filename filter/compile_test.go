/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package filter

import (
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func TestCompileOracles(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		expr   string
		names  map[string]string
		values map[string]types.AttributeValue
	}{
		{
			name:   "single equality",
			filter: Filter{"a": "test"},
			expr:   "(#a = :a)",
			names:  map[string]string{"#a": "a"},
			values: map[string]types.AttributeValue{":a": s("test")},
		},
		{
			name:   "two equalities",
			filter: Filter{"a": "test", "b": "test"},
			expr:   "(#a = :a AND #b = :b)",
			names:  map[string]string{"#a": "a", "#b": "b"},
			values: map[string]types.AttributeValue{":a": s("test"), ":b": s("test")},
		},
		{
			name:   "begins with",
			filter: Filter{"a": Op{BeginsWith: "test"}},
			expr:   "(begins_with(#a, :a))",
			names:  map[string]string{"#a": "a"},
			values: map[string]types.AttributeValue{":a": s("test")},
		},
		{
			name:   "between",
			filter: Filter{"a": Op{Between: []any{"x", "y"}}},
			expr:   "(#a BETWEEN :a0 AND :a1)",
			names:  map[string]string{"#a": "a"},
			values: map[string]types.AttributeValue{":a0": s("x"), ":a1": s("y")},
		},
		{
			name:   "greater or equal",
			filter: Filter{"a": Op{Ge: 5}},
			expr:   "(#a >= :a)",
			names:  map[string]string{"#a": "a"},
			values: map[string]types.AttributeValue{":a": n("5")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, got.Expression)
			assert.Equal(t, tt.names, got.Names)
			assert.Equal(t, tt.values, got.Values)
		})
	}
}

func TestCompileOperators(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		expr   string
	}{
		{"not equal", Filter{"a": Op{Ne: 1}}, "(#a <> :a)"},
		{"greater", Filter{"a": Op{G: 1}}, "(#a > :a)"},
		{"less", Filter{"a": Op{L: 1}}, "(#a < :a)"},
		{"less or equal", Filter{"a": Op{Le: 1}}, "(#a <= :a)"},
		{"in", Filter{"a": In("x", "y", "z")}, "(#a IN (:a0, :a1, :a2))"},
		{"contains", Filter{"tags": Op{Contains: "go"}}, "(contains(#tags, :tags))"},
		{"pointer op", Filter{"a": &Op{Eq: "x"}}, "(#a = :a)"},
		{"range on one field", Filter{"a": Op{Ge: 1, Le: 9}}, "(#a >= :a_ge AND #a <= :a_le)"},
		{"zero values constrain", Filter{"a": 0, "b": false, "c": ""}, "(#a = :a AND #b = :b AND #c = :c)"},
		{"nested path", Filter{"profile": Filter{"age": Op{G: 21}}}, "(#profile.#profile_age > :profile_age)"},
		{"sanitized placeholder", Filter{"first-name": "x"}, "(#first_name = :first_name)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, got.Expression)
			assertPlaceholdersBound(t, got)
		})
	}
}

func TestCompileCombinators(t *testing.T) {
	t.Run("or", func(t *testing.T) {
		got, err := Compile(Filter{"OR": []Filter{{"a": "x"}, {"a": "y"}}})
		require.NoError(t, err)
		assert.Equal(t, "(((#OR_0_a = :OR_0_a) OR (#OR_1_a = :OR_1_a)))", got.Expression)
		assert.Equal(t, s("x"), got.Values[":OR_0_a"])
		assert.Equal(t, s("y"), got.Values[":OR_1_a"])
	})

	t.Run("not", func(t *testing.T) {
		got, err := Compile(Filter{"NOT": []Filter{{"a": "x"}, {"b": Op{G: 2}}}})
		require.NoError(t, err)
		assert.Equal(t, "((NOT ((#NOT_0_a = :NOT_0_a) AND (#NOT_1_b > :NOT_1_b))))", got.Expression)
	})

	t.Run("and nested in or", func(t *testing.T) {
		got, err := Compile(Filter{
			"status": "open",
			"OR": []Filter{
				{"AND": []Filter{{"a": 1}, {"b": 2}}},
				{"c": 3},
			},
		})
		require.NoError(t, err)
		assert.Equal(t,
			"(((((#OR_0_AND_0_a = :OR_0_AND_0_a) AND (#OR_0_AND_1_b = :OR_0_AND_1_b))) OR (#OR_1_c = :OR_1_c)) AND #status = :status)",
			got.Expression)
		assertPlaceholdersBound(t, got)
	})

	t.Run("untyped children", func(t *testing.T) {
		got, err := Compile(Filter{"OR": []any{map[string]any{"a": "x"}, Filter{"b": "y"}}})
		require.NoError(t, err)
		assert.Equal(t, "(((#OR_0_a = :OR_0_a) OR (#OR_1_b = :OR_1_b)))", got.Expression)
	})

	t.Run("empty children are dropped", func(t *testing.T) {
		got, err := Compile(Filter{"a": "x", "OR": []Filter{{}, {"b": nil}}})
		require.NoError(t, err)
		assert.Equal(t, "(#a = :a)", got.Expression)
	})
}

func TestCompileEmpty(t *testing.T) {
	for _, f := range []Filter{nil, {}, {"a": nil}, {"a": Op{}}, {"AND": []Filter{}}} {
		got, err := Compile(f)
		require.NoError(t, err)
		assert.True(t, got.IsEmpty())
		assert.Empty(t, got.Values)
	}
}

func TestCompileSkipsMalformedShapes(t *testing.T) {
	got, err := Compile(Filter{
		"a": Op{Between: []any{1}},
		"b": Op{In: []any{}},
		"c": "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "(#c = :c)", got.Expression)
	assert.Len(t, got.Values, 1)
}

func TestCompileDates(t *testing.T) {
	at := time.Date(2023, 10, 10, 0, 0, 0, 0, time.UTC)
	got, err := Compile(Filter{
		"createdAt": Op{Ge: at},
		"updatedAt": Op{L: strfmt.DateTime(at)},
	})
	require.NoError(t, err)
	assert.Equal(t, s("2023-10-10T00:00:00.000Z"), got.Values[":createdAt"])
	assert.Equal(t, s("2023-10-10T00:00:00.000Z"), got.Values[":updatedAt"])
}

func TestCompileIsDeterministic(t *testing.T) {
	f := Filter{"z": 1, "a": 2, "m": Op{Between: []any{1, 2}}, "OR": []Filter{{"x": 1}, {"y": 2}}}
	first, err := Compile(f)
	require.NoError(t, err)
	for range 20 {
		again, err := Compile(f)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPlaceholderUniqueness(t *testing.T) {
	f := Filter{
		"a": 1,
		"OR": []Filter{
			{"a": 2, "NOT": []Filter{{"a": 3}}},
			{"a": Op{Between: []any{4, 5}}},
			{"AND": []Filter{{"a": In(6, 7)}, {"a": Op{Ge: 8, Le: 9}}}},
		},
	}
	got, err := Compile(f)
	require.NoError(t, err)
	assertPlaceholdersBound(t, got)

	// every literal of the tree is bound to its own placeholder
	assert.Len(t, got.Values, 9)
}

func TestPlaceholderCollisions(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		expr   string
		names  map[string]string
		values map[string]types.AttributeValue
	}{
		{
			name:   "sanitized names",
			filter: Filter{"a-b": "x", "a_b": "y"},
			expr:   "(#a_b = :a_b AND #a_b_1 = :a_b_1)",
			names:  map[string]string{"#a_b": "a-b", "#a_b_1": "a_b"},
			values: map[string]types.AttributeValue{":a_b": s("x"), ":a_b_1": s("y")},
		},
		{
			name:   "nested path against flat field",
			filter: Filter{"profile": Filter{"age": 1}, "profile_age": 2},
			expr:   "(#profile.#profile_age = :profile_age AND #profile_age_1 = :profile_age_1)",
			names:  map[string]string{"#profile": "profile", "#profile_age": "age", "#profile_age_1": "profile_age"},
			values: map[string]types.AttributeValue{":profile_age": n("1"), ":profile_age_1": n("2")},
		},
		{
			name:   "operator suffix against field",
			filter: Filter{"a": Op{G: 1, L: 9}, "a_g": 5},
			expr:   "(#a > :a_g AND #a < :a_l AND #a_g = :a_g_1)",
			names:  map[string]string{"#a": "a", "#a_g": "a_g"},
			values: map[string]types.AttributeValue{":a_g": n("1"), ":a_l": n("9"), ":a_g_1": n("5")},
		},
		{
			name:   "index suffix against field",
			filter: Filter{"a": Between(1, 2), "a0": 7},
			expr:   "(#a BETWEEN :a0 AND :a1 AND #a0 = :a0_1)",
			names:  map[string]string{"#a": "a", "#a0": "a0"},
			values: map[string]types.AttributeValue{":a0": n("1"), ":a1": n("2"), ":a0_1": n("7")},
		},
		{
			name:   "in against field",
			filter: Filter{"a": In("x", "y"), "a1": "z"},
			expr:   "(#a IN (:a0, :a1) AND #a1 = :a1_1)",
			names:  map[string]string{"#a": "a", "#a1": "a1"},
			values: map[string]types.AttributeValue{":a0": s("x"), ":a1": s("y"), ":a1_1": s("z")},
		},
		{
			name:   "numbered form taken by a field",
			filter: Filter{"a-b": 1, "a_b": 2, "a_b_1": 3},
			expr:   "(#a_b = :a_b AND #a_b_1 = :a_b_1 AND #a_b_1_1 = :a_b_1_1)",
			names:  map[string]string{"#a_b": "a-b", "#a_b_1": "a_b", "#a_b_1_1": "a_b_1"},
			values: map[string]types.AttributeValue{":a_b": n("1"), ":a_b_1": n("2"), ":a_b_1_1": n("3")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, got.Expression)
			assert.Equal(t, tt.names, got.Names)
			assert.Equal(t, tt.values, got.Values)
			assertPlaceholdersBound(t, got)
		})
	}
}

func TestCompileDisjoint(t *testing.T) {
	key, err := CompileKeyCondition(Filter{"pk": "p"})
	require.NoError(t, err)

	where, err := CompileDisjoint(Filter{"k_pk": "x", "pk": Op{Ne: "q"}}, key)
	require.NoError(t, err)
	assert.Equal(t, "(#k_pk_1 = :k_pk_1 AND #pk <> :pk)", where.Expression)
	assert.Equal(t, map[string]string{"#k_pk_1": "k_pk", "#pk": "pk"}, where.Names)

	merged := Merge(key, where)
	assert.Equal(t, "pk", merged.Names["#k_pk"])
	assert.Equal(t, s("p"), merged.Values[":k_pk"])
	assert.Equal(t, s("x"), merged.Values[":k_pk_1"])
	assert.Len(t, merged.Values, 3)

	// a name already bound to the same attribute is shared
	proj := Expression{Names: map[string]string{"#0": "Name", "#1": "1"}}
	where, err = CompileDisjoint(Filter{"0": "a", "1": "b"}, proj)
	require.NoError(t, err)
	assert.Equal(t, "(#0_1 = :0 AND #1 = :1)", where.Expression)
	assert.Equal(t, map[string]string{"#0_1": "0", "#1": "1"}, where.Names)
}

func TestMerge(t *testing.T) {
	key, err := CompileKeyCondition(Filter{"pk": "p"})
	require.NoError(t, err)
	where, err := Compile(Filter{"pk": Op{Ne: "q"}})
	require.NoError(t, err)

	merged := Merge(key, where)
	assert.Equal(t, key.Expression, merged.Expression)
	assert.Equal(t, map[string]string{"#k_pk": "pk", "#pk": "pk"}, merged.Names)
	assert.Len(t, merged.Values, 2)
}

var placeholderPattern = regexp.MustCompile(`[#:][A-Za-z0-9_]+`)

func assertPlaceholdersBound(t *testing.T, e Expression) {
	t.Helper()
	used := map[string]bool{}
	for _, ph := range placeholderPattern.FindAllString(e.Expression, -1) {
		used[ph] = true
		if ph[0] == '#' {
			assert.Contains(t, e.Names, ph)
		} else {
			assert.Contains(t, e.Values, ph)
		}
	}
	for ph := range e.Names {
		assert.True(t, used[ph], "unused name placeholder %s", ph)
	}
	for ph := range e.Values {
		assert.True(t, used[ph], "unused value placeholder %s", ph)
	}
}
