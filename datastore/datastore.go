/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// Store is the subset of the DynamoDB API the driver depends on.
// *dynamodb.Client satisfies it, as does mock.Store.
type Store interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ Store = (*dynamodb.Client)(nil)

// DataStore is the per-entity accessor. T is the item representation:
// schema.Item for the schema-driven driver, *U for typed accessors.
type DataStore[T any] interface {
	FindOne(ctx context.Context, key schema.Key) (T, error)

	FindMany(ctx context.Context, q storagemodels.Query) (*storagemodels.Result[T], error)

	FindFirst(ctx context.Context, q storagemodels.Query) (T, error)

	FindAll(ctx context.Context, q storagemodels.Query) ([]T, error)

	Stream(ctx context.Context, q storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]

	Create(ctx context.Context, item T) (T, error)

	Update(ctx context.Context, key schema.Key, patch schema.Item) (T, error)

	Delete(ctx context.Context, key schema.Key) error

	DeleteMany(ctx context.Context, q storagemodels.Query) (int, error)

	Subscribe(event storagemodels.EventType, fn func(storagemodels.Event[T])) error
}
