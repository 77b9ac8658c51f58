/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MaxiMittel/dynormo/schema"
)

// TxCreate returns a transactional put of the full record of item.
func (e *Entity) TxCreate(item schema.Item) (types.TransactWriteItem, error) {
	av, err := e.record(item)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(e.tableName),
			Item:      av,
		},
	}, nil
}

// TxUpdate returns a transactional update applying patch to the item with key k.
func (e *Entity) TxUpdate(k schema.Key, patch schema.Item) (types.TransactWriteItem, error) {
	key, err := e.encodeKey(k)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	expr, err := e.updateExpression(patch)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(e.tableName),
			Key:                       key,
			UpdateExpression:          expr.Update(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
	}, nil
}

// TxDelete returns a transactional delete of the item with key k.
func (e *Entity) TxDelete(k schema.Key) (types.TransactWriteItem, error) {
	key, err := e.encodeKey(k)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(e.tableName),
			Key:       key,
		},
	}, nil
}
