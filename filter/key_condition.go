/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package filter

import (
	"fmt"

	"github.com/MaxiMittel/dynormo/errors"
)

// KeyPrefix qualifies key-condition placeholders so they never collide with
// the placeholders of a filter merged into the same request.
const KeyPrefix = "k_"

// CompileKeyCondition compiles a key-condition tree. Only equality, the
// comparison operators, Between and BeginsWith are accepted, at most two
// fields may be constrained and each field carries exactly one operator.
// Which fields are legal key attributes is decided by the caller.
func CompileKeyCondition(f Filter) (Expression, error) {
	fields := 0
	for _, key := range sortedKeys(f) {
		if isCombinator(key) {
			return Expression{}, errors.NewValidationError(key, "combinators are not allowed in key conditions")
		}
		value := f[key]
		if value == nil {
			continue
		}
		fields++
		if err := checkKeyField(key, value); err != nil {
			return Expression{}, err
		}
	}
	if fields == 0 {
		return Expression{}, errors.NewValidationError("key", "key condition is empty")
	}
	if fields > 2 {
		return Expression{}, errors.NewValidationError("key", fmt.Sprintf("key condition constrains %d fields, at most 2 allowed", fields))
	}
	return compile(f, AND, KeyPrefix)
}

func checkKeyField(key string, value any) error {
	var op Op
	switch v := value.(type) {
	case Filter, map[string]any:
		return errors.NewValidationError(key, "nested paths are not allowed in key conditions")
	case Op:
		op = v
	case *Op:
		if v == nil {
			return nil
		}
		op = *v
	default:
		return nil
	}

	if op.Ne != nil || op.In != nil || op.Contains != nil {
		return errors.NewValidationError(key, "only =, <, <=, >, >=, BETWEEN and begins_with are allowed in key conditions")
	}
	if op.Between != nil && len(op.Between) != 2 {
		return errors.NewValidationError(key, "BETWEEN requires exactly two values")
	}

	count := 0
	for _, v := range []any{op.Eq, op.G, op.Ge, op.L, op.Le, op.BeginsWith} {
		if v != nil {
			count++
		}
	}
	if op.Between != nil {
		count++
	}
	if count != 1 {
		return errors.NewValidationError(key, fmt.Sprintf("expected exactly one operator, got %d", count))
	}
	return nil
}

// EqualityValue returns the operand of a field constrained by equality, either
// a literal or Op{Eq}.
func EqualityValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil, Filter, map[string]any:
		return nil, false
	case Op:
		return v.Eq, v.Eq != nil && v.Ne == nil && v.In == nil && v.Contains == nil && v.Between == nil && v.G == nil && v.Ge == nil && v.L == nil && v.Le == nil && v.BeginsWith == nil
	case *Op:
		if v == nil {
			return nil, false
		}
		return EqualityValue(*v)
	}
	return value, true
}
