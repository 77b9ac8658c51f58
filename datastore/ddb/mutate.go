/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"context"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// record builds the full stored record of a new item.
func (e *Entity) record(item schema.Item) (map[string]types.AttributeValue, error) {
	prepared, err := e.prepare(e.schema.Attributes, item)
	if err != nil {
		return nil, err
	}
	av, err := encode(e.schema.Attributes, prepared)
	if err != nil {
		return nil, err
	}
	pk, _ := e.schema.PartitionKey()
	if _, ok := av[pk]; !ok {
		return nil, errors.NewValidationError(pk, "partition key value is required")
	}
	if sk, _ := e.schema.SortKey(); sk != "" {
		if _, ok := av[sk]; !ok {
			return nil, errors.NewValidationError(sk, "sort key value is required")
		}
	}
	return av, nil
}

// Create writes a new item after applying static values, generators,
// defaults, explicit nulls and empty collections. It returns the stored
// record decoded.
func (e *Entity) Create(ctx context.Context, item schema.Item) (schema.Item, error) {
	av, err := e.record(item)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(e.tableName),
		Item:      av,
	}
	e.debug(opCreate, input)

	if _, err := e.store.PutItem(ctx, input); err != nil {
		return nil, e.fail(opCreate, "an error occurred while trying to create the item", input, err)
	}

	created, err := decode(e.schema.Attributes, av)
	if err != nil {
		return nil, err
	}
	e.notify(storagemodels.Event[schema.Item]{Type: storagemodels.EventCreate, Item: created})
	return created, nil
}

// updateExpression builds a SET (and REMOVE for emptied sets) expression
// over the non-nil, non-key fields of patch.
func (e *Entity) updateExpression(patch schema.Item) (expression.Expression, error) {
	fields := make([]string, 0, len(patch))
	for name, v := range patch {
		if v == nil {
			continue
		}
		attr, ok := e.schema.Attributes.Get(name)
		if !ok {
			return expression.Expression{}, errors.NewValidationError(name, "unknown attribute")
		}
		if e.schema.IsKey(name) || attr.IsStatic() {
			continue
		}
		fields = append(fields, name)
	}
	if len(fields) == 0 {
		return expression.Expression{}, errors.NewValidationError("patch", "no updatable attributes given")
	}
	slices.Sort(fields)

	var update expression.UpdateBuilder
	for _, name := range fields {
		attr, _ := e.schema.Attributes.Get(name)
		av, err := encodeValue(name, attr, patch[name])
		if err != nil {
			return expression.Expression{}, err
		}
		if av == nil {
			update = update.Remove(expression.Name(name))
			continue
		}
		update = update.Set(expression.Name(name), expression.Value(raw{av}))
	}
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return expression.Expression{}, errors.NewValidationError("patch", err.Error())
	}
	return expr, nil
}

// Update applies patch to the item with key k and returns the updated item.
// Nil fields and key attributes are ignored. UPDATE subscribers receive the
// new image and the image read before the update.
func (e *Entity) Update(ctx context.Context, k schema.Key, patch schema.Item) (schema.Item, error) {
	key, err := e.encodeKey(k)
	if err != nil {
		return nil, err
	}
	expr, err := e.updateExpression(patch)
	if err != nil {
		return nil, err
	}

	var previous schema.Item
	notify := e.hasSubscribers(storagemodels.EventUpdate)
	if notify {
		if previous, err = e.FindOne(ctx, k); err != nil {
			return nil, err
		}
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(e.tableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}
	e.debug(opUpdate, input)

	out, err := e.store.UpdateItem(ctx, input)
	if err != nil {
		return nil, e.fail(opUpdate, "an error occurred while trying to update the item", input, err)
	}
	updated, err := decode(e.schema.Attributes, out.Attributes)
	if err != nil {
		return nil, err
	}
	if notify {
		e.notify(storagemodels.Event[schema.Item]{Type: storagemodels.EventUpdate, Item: updated, Previous: previous})
	}
	return updated, nil
}

// Delete removes the item with key k. Deleting a missing item succeeds.
// DELETE subscribers are notified with the removed item when one existed.
func (e *Entity) Delete(ctx context.Context, k schema.Key) error {
	key, err := e.encodeKey(k)
	if err != nil {
		return err
	}
	notify := e.hasSubscribers(storagemodels.EventDelete)
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(e.tableName),
		Key:       key,
	}
	if notify {
		input.ReturnValues = types.ReturnValueAllOld
	}
	e.debug(opDelete, input)

	out, err := e.store.DeleteItem(ctx, input)
	if err != nil {
		return e.fail(opDelete, "an error occurred while trying to delete the item", input, err)
	}
	if !notify || len(out.Attributes) == 0 {
		return nil
	}
	removed, err := decode(e.schema.Attributes, out.Attributes)
	if err != nil {
		e.logger.Warn("failed to decode deleted item", zap.String("key", describe(key)), zap.Error(err))
		return nil
	}
	e.notify(storagemodels.Event[schema.Item]{Type: storagemodels.EventDelete, Item: removed})
	return nil
}
