/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package transform

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/MaxiMittel/dynormo/errors"
)

// itemVar is the CEL variable holding the item under evaluation.
const itemVar = "item"

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(itemVar, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}
	return env, nil
}

func compileExpr(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.NewValidationError("expr", fmt.Sprintf("%q: %s", expr, issues.Err()))
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program for %q: %w", expr, err)
	}
	return prg, nil
}

func evalValue(prg cel.Program, item map[string]any) (any, error) {
	out, _, err := prg.Eval(map[string]any{itemVar: item})
	if err != nil {
		return nil, err
	}
	return native(out)
}

func evalBool(prg cel.Program, item map[string]any) (bool, error) {
	out, _, err := prg.Eval(map[string]any{itemVar: item})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate returned %s, want bool", out.Type().TypeName())
	}
	return b, nil
}

// native converts a CEL value into the plain Go values attributevalue
// marshals: maps keyed by string, slices, scalars and nil.
func native(v ref.Val) (any, error) {
	if types.IsError(v) {
		return nil, fmt.Errorf("expression failed: %v", v.Value())
	}
	switch v.Type() {
	case types.NullType:
		return nil, nil
	case types.MapType:
		m, ok := v.(traits.Mapper)
		if !ok {
			return v.Value(), nil
		}
		out := map[string]any{}
		it := m.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			key, ok := k.Value().(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", k.Value())
			}
			val, err := native(m.Get(k))
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	case types.ListType:
		l, ok := v.(traits.Lister)
		if !ok {
			return v.Value(), nil
		}
		size, ok := l.Size().(types.Int)
		if !ok {
			return nil, fmt.Errorf("list has no size")
		}
		out := make([]any, int(size))
		for i := range out {
			val, err := native(l.Get(types.Int(i)))
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	}
	return v.Value(), nil
}
