/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"context"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/filter"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// findFirstLimit is the page limit of the first FindFirst request.
const findFirstLimit = 25

// FindOne retrieves a single item by its primary key.
// It returns nil, nil if no item is found.
func (e *Entity) FindOne(ctx context.Context, k schema.Key) (schema.Item, error) {
	key, err := e.encodeKey(k)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.GetItemInput{
		TableName: aws.String(e.tableName),
		Key:       key,
	}
	e.debug(opFindOne, input)

	out, err := e.store.GetItem(ctx, input)
	if err != nil {
		return nil, e.fail(opFindOne, "an error occurred while trying to find the item", input, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return decode(e.schema.Attributes, out.Item)
}

// FindMany fetches one page. Without q.Key the table (or index) is scanned,
// otherwise it is queried. q.Limit is the page limit handed to the store, so
// a page can hold fewer matches than the limit while LastKey is still set.
func (e *Entity) FindMany(ctx context.Context, q storagemodels.Query) (*storagemodels.Result[schema.Item], error) {
	items, lastKey, err := e.page(ctx, q, opFindMany)
	if err != nil {
		return nil, err
	}
	res := &storagemodels.Result[schema.Item]{
		Items:   make([]schema.Item, 0, len(items)),
		LastKey: lastKey,
	}
	for _, raw := range items {
		item, err := decode(e.schema.Attributes, raw)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, item)
	}
	res.Count = len(res.Items)
	return res, nil
}

// FindFirst returns the first item matching q, or nil. Pages are requested
// with a limit starting at 25 (or q.Limit when smaller) that doubles after
// every empty page, capped at q.Limit when one is given.
func (e *Entity) FindFirst(ctx context.Context, q storagemodels.Query) (schema.Item, error) {
	limit := int32(findFirstLimit)
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}

	page := q
	for {
		page.Limit = limit
		res, err := e.FindMany(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(res.Items) > 0 {
			return res.Items[0], nil
		}
		if res.LastKey == nil {
			return nil, nil
		}
		page.StartKey = res.LastKey

		if limit <= math.MaxInt32/2 {
			limit *= 2
		}
		if q.Limit > 0 && limit > q.Limit {
			limit = q.Limit
		}
	}
}

// FindAll drains every page of q from the start of the table or index;
// q.StartKey is ignored. q.Limit is used as the page size only.
// Items keep the page order and the order within each page.
func (e *Entity) FindAll(ctx context.Context, q storagemodels.Query) ([]schema.Item, error) {
	q.StartKey = nil
	raws, err := e.drain(ctx, q, opFindMany)
	if err != nil {
		return nil, err
	}
	items := make([]schema.Item, 0, len(raws))
	for _, raw := range raws {
		item, err := decode(e.schema.Attributes, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (e *Entity) drain(ctx context.Context, q storagemodels.Query, op string) ([]map[string]types.AttributeValue, error) {
	var all []map[string]types.AttributeValue
	page := q
	for {
		items, lastKey, err := e.page(ctx, page, op)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if lastKey == nil {
			return all, nil
		}
		page.StartKey = lastKey
	}
}

// page issues one Scan or Query.
func (e *Entity) page(ctx context.Context, q storagemodels.Query, op string) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	if len(q.Key) == 0 {
		input, err := e.scanInput(q)
		if err != nil {
			return nil, nil, err
		}
		e.debug(op, input)
		out, err := e.store.Scan(ctx, input)
		if err != nil {
			return nil, nil, e.fail(op, "an error occurred while trying to scan the table", input, err)
		}
		return out.Items, lastKey(out.LastEvaluatedKey), nil
	}

	input, err := e.queryInput(q)
	if err != nil {
		return nil, nil, err
	}
	e.debug(op, input)
	out, err := e.store.Query(ctx, input)
	if err != nil {
		return nil, nil, e.fail(op, "an error occurred while trying to query the table", input, err)
	}
	return out.Items, lastKey(out.LastEvaluatedKey), nil
}

func lastKey(key map[string]types.AttributeValue) map[string]types.AttributeValue {
	if len(key) == 0 {
		return nil
	}
	return key
}

// readExpressions compiles the filter and projection of q into one name and
// value set. The filter never rebinds a placeholder of base or of the projection.
func (e *Entity) readExpressions(q storagemodels.Query, base filter.Expression) (where filter.Expression, projection *string, merged filter.Expression, err error) {
	var proj filter.Expression
	if len(q.Projection) > 0 {
		names := make([]expression.NameBuilder, 0, len(q.Projection))
		for _, p := range q.Projection {
			names = append(names, expression.Name(p))
		}
		built, err := expression.NewBuilder().WithProjection(expression.NamesList(names[0], names[1:]...)).Build()
		if err != nil {
			return where, nil, merged, errors.NewValidationError("projection", err.Error())
		}
		projection = built.Projection()
		proj = filter.Expression{Names: built.Names()}
	}

	where, err = filter.CompileDisjoint(q.Where, base, proj)
	if err != nil {
		return where, nil, merged, errors.NewValidationError("where", err.Error())
	}
	merged = filter.Merge(filter.Merge(base, where), proj)
	return where, projection, merged, nil
}

func (e *Entity) scanInput(q storagemodels.Query) (*dynamodb.ScanInput, error) {
	where, projection, merged, err := e.readExpressions(q, filter.Expression{})
	if err != nil {
		return nil, err
	}
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(e.tableName),
		ExclusiveStartKey:         q.StartKey,
		ProjectionExpression:      projection,
		ExpressionAttributeNames:  nonEmptyNames(merged.Names),
		ExpressionAttributeValues: nonEmptyValues(merged.Values),
	}
	if !where.IsEmpty() {
		input.FilterExpression = aws.String(where.Expression)
	}
	if q.Index != "" {
		if _, ok := e.schema.Index(q.Index); !ok {
			return nil, errors.NewValidationError("index", "unknown index "+q.Index)
		}
		input.IndexName = aws.String(q.Index)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}
	if q.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}
	return input, nil
}

func (e *Entity) queryInput(q storagemodels.Query) (*dynamodb.QueryInput, error) {
	key, err := e.keyCondition(q)
	if err != nil {
		return nil, err
	}
	where, projection, merged, err := e.readExpressions(q, key)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(e.tableName),
		KeyConditionExpression:    aws.String(key.Expression),
		ExclusiveStartKey:         q.StartKey,
		ScanIndexForward:          q.ScanIndexForward,
		ProjectionExpression:      projection,
		ExpressionAttributeNames:  nonEmptyNames(merged.Names),
		ExpressionAttributeValues: nonEmptyValues(merged.Values),
	}
	if !where.IsEmpty() {
		input.FilterExpression = aws.String(where.Expression)
	}
	if q.Index != "" {
		input.IndexName = aws.String(q.Index)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}
	if q.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}
	return input, nil
}

func nonEmptyNames(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func nonEmptyValues(m map[string]types.AttributeValue) map[string]types.AttributeValue {
	if len(m) == 0 {
		return nil
	}
	return m
}
