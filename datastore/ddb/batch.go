/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"context"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// MaxBatchSize is the largest number of requests in one BatchWriteItem call.
const MaxBatchSize = 25

// DeleteMany deletes every item matching q and returns how many were deleted.
// Like FindAll it starts from the beginning, and it reads whole items whatever
// q.Projection says, since keys and delete events need every attribute.
// Deletes are sent in concurrent batches of at most 25; the first failing
// batch fails the call and batches already applied stay applied.
func (e *Entity) DeleteMany(ctx context.Context, q storagemodels.Query) (int, error) {
	q.StartKey = nil
	q.Projection = nil
	raws, err := e.drain(ctx, q, opDeleteMany)
	if err != nil {
		return 0, err
	}
	if len(raws) == 0 {
		return 0, nil
	}

	requests := make([]types.WriteRequest, len(raws))
	for i, raw := range raws {
		requests[i] = types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: e.keyOf(raw)}}
	}
	if err := e.writeBatches(ctx, opDeleteMany, "an error occurred while trying to delete the items", requests); err != nil {
		return 0, err
	}

	if e.hasSubscribers(storagemodels.EventDelete) {
		for _, raw := range raws {
			item, err := decode(e.schema.Attributes, raw)
			if err != nil {
				return len(raws), err
			}
			e.notify(storagemodels.Event[schema.Item]{Type: storagemodels.EventDelete, Item: item})
		}
	}
	return len(raws), nil
}

// CreateMany writes items in concurrent batches of at most 25 and returns the
// created records in input order. Like DeleteMany it is not atomic across batches.
func (e *Entity) CreateMany(ctx context.Context, items []schema.Item) ([]schema.Item, error) {
	requests := make([]types.WriteRequest, len(items))
	records := make([]map[string]types.AttributeValue, len(items))
	for i, item := range items {
		av, err := e.record(item)
		if err != nil {
			return nil, err
		}
		records[i] = av
		requests[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: av}}
	}
	if len(requests) == 0 {
		return []schema.Item{}, nil
	}
	if err := e.writeBatches(ctx, opCreateMany, "an error occurred while trying to create the items", requests); err != nil {
		return nil, err
	}

	created := make([]schema.Item, len(records))
	for i, av := range records {
		item, err := decode(e.schema.Attributes, av)
		if err != nil {
			return nil, err
		}
		created[i] = item
		e.notify(storagemodels.Event[schema.Item]{Type: storagemodels.EventCreate, Item: item})
	}
	return created, nil
}

func (e *Entity) writeBatches(ctx context.Context, op, message string, requests []types.WriteRequest) error {
	g, gctx := errgroup.WithContext(ctx)
	for chunk := range slices.Chunk(requests, MaxBatchSize) {
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{e.tableName: chunk},
		}
		g.Go(func() error {
			e.debug(op, input)
			out, err := e.store.BatchWriteItem(gctx, input)
			if err != nil {
				return e.fail(op, message, input, err)
			}
			if n := unprocessed(out.UnprocessedItems); n > 0 {
				return e.fail(op, message, input, errors.NewPartialBatchError(op, n))
			}
			return nil
		})
	}
	return g.Wait()
}

func unprocessed(items map[string][]types.WriteRequest) int {
	n := 0
	for _, reqs := range items {
		n += len(reqs)
	}
	return n
}
