/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"fmt"
	"maps"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/filter"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// keyCondition validates q.Key against the key attributes of the table or the
// selected index and compiles it. A static table partition key may be omitted.
func (e *Entity) keyCondition(q storagemodels.Query) (filter.Expression, error) {
	pk, sk, err := e.schema.KeyAttributes(q.Index)
	if err != nil {
		return filter.Expression{}, err
	}

	key := maps.Clone(q.Key)
	if q.Index == "" && key[pk] == nil {
		if _, attr := e.schema.PartitionKey(); attr != nil && attr.IsStatic() {
			key[pk] = attr.StaticValue
		}
	}

	if key[pk] == nil {
		return filter.Expression{}, errors.NewValidationError(pk, "key condition must constrain the partition key")
	}
	for field, v := range key {
		if v == nil {
			continue
		}
		switch field {
		case pk:
			if _, ok := filter.EqualityValue(v); !ok {
				return filter.Expression{}, errors.NewValidationError(pk, "the partition key only supports equality")
			}
		case sk:
		default:
			where := "table " + e.tableName
			if q.Index != "" {
				where = "index " + q.Index
			}
			return filter.Expression{}, errors.NewValidationError(field, fmt.Sprintf("%s is not a key attribute of %s", field, where))
		}
	}
	return filter.CompileKeyCondition(key)
}
