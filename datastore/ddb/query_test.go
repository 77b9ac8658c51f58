/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MaxiMittel/dynormo/datastore/ddb"
	"github.com/MaxiMittel/dynormo/datastore/mock"
	"github.com/MaxiMittel/dynormo/datastore/testmodels"
	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/filter"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

func ids(items []schema.Item, field string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item[field])
	}
	return out
}

func TestFindManyPage(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	e := players(t, store)
	seedPlayers(t, e, 10)

	res, err := e.FindMany(ctx, storagemodels.Query{Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"p00", "p01", "p02", "p03"}, ids(res.Items, "PlayerId"))
	assert.Equal(t, 4, res.Count)
	require.NotNil(t, res.LastKey)

	res, err = e.FindMany(ctx, storagemodels.Query{Limit: 4, StartKey: res.LastKey})
	require.NoError(t, err)
	assert.Equal(t, []string{"p04", "p05", "p06", "p07"}, ids(res.Items, "PlayerId"))

	res, err = e.FindMany(ctx, storagemodels.Query{Limit: 4, StartKey: res.LastKey})
	require.NoError(t, err)
	assert.Equal(t, []string{"p08", "p09"}, ids(res.Items, "PlayerId"))
	assert.Nil(t, res.LastKey)
}

func TestFindManyFilterAppliesAfterLimit(t *testing.T) {
	ctx := context.Background()
	e := players(t, newStore())
	seedPlayers(t, e, 10)

	res, err := e.FindMany(ctx, storagemodels.Query{
		Where: filter.Filter{"Rating": filter.Op{Ge: 1008}},
		Limit: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Count)
	assert.NotNil(t, res.LastKey, "an empty page does not mean exhaustion")
}

func TestFindAllDrainsPages(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	e := players(t, store)
	seedPlayers(t, e, 10)
	store.Reset()

	items, err := e.FindAll(ctx, storagemodels.Query{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, "p00", items[0]["PlayerId"])
	assert.Equal(t, "p09", items[9]["PlayerId"])
	assert.Equal(t, []int32{3, 3, 3, 3}, store.PageLimits())

	items, err = e.FindAll(ctx, storagemodels.Query{
		Where: filter.Filter{filter.OR: []filter.Filter{
			{"PlayerId": "p01"},
			{"Rating": filter.Op{G: 1007}},
		}},
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p01", "p08", "p09"}, ids(items, "PlayerId"))

	page, err := e.FindMany(ctx, storagemodels.Query{Limit: 4})
	require.NoError(t, err)
	require.NotNil(t, page.LastKey)
	items, err = e.FindAll(ctx, storagemodels.Query{StartKey: page.LastKey})
	require.NoError(t, err)
	assert.Len(t, items, 10, "a cursor does not skip items")
}

func TestFindAllByKeyCondition(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	e := players(t, store)
	seedPlayers(t, e, 30)
	store.Reset()

	items, err := e.FindAll(ctx, storagemodels.Query{
		Key:              filter.Filter{"PlayerId": filter.BeginsWith("p1")},
		ScanIndexForward: aws.Bool(false),
	})
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, "p19", items[0]["PlayerId"])
	assert.Equal(t, 1, store.Calls("Query"))
	assert.Zero(t, store.Calls("Scan"))
}

func TestFindAllOnIndex(t *testing.T) {
	ctx := context.Background()
	e := ratingSystems(t, newStore(), ddb.WithClock(ticking()))

	for i, status := range []string{"active", "retired", "active", "active"} {
		_, err := e.Create(ctx, schema.Item{"Id": fmt.Sprintf("rs%d", i), "Name": "rs", "Status": status})
		require.NoError(t, err)
	}

	items, err := e.FindAll(ctx, storagemodels.Query{
		Index: "ByStatus",
		Key: filter.Filter{
			"Status":    "active",
			"CreatedAt": filter.Op{Ge: epoch.Add(2 * time.Minute)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rs2", "rs3"}, ids(items, "Id"))
}

func TestKeyConditionValidation(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	systems := ratingSystems(t, store)
	roster := players(t, store)

	tests := []struct {
		name string
		e    *ddb.Entity
		q    storagemodels.Query
	}{
		{"missing partition key", systems, storagemodels.Query{Key: filter.Filter{"Name": "x"}}},
		{"non key attribute", roster, storagemodels.Query{Key: filter.Filter{"PlayerId": "p1", "Name": "x"}}},
		{"partition key range", systems, storagemodels.Query{Key: filter.Filter{"Id": filter.Op{Ge: "a"}}}},
		{"table key on index", systems, storagemodels.Query{Index: "ByStatus", Key: filter.Filter{"Id": "a"}}},
		{"unknown index", systems, storagemodels.Query{Index: "ByName", Key: filter.Filter{"Name": "a"}}},
		{"sort key not equal", roster, storagemodels.Query{Key: filter.Filter{"PlayerId": filter.Op{Ne: "p1"}}}},
		{"combinator", roster, storagemodels.Query{Key: filter.Filter{filter.OR: []filter.Filter{{"PlayerId": "p1"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.e.FindMany(ctx, tt.q)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), err.Error())
		})
	}
	assert.Zero(t, store.Calls("Query"))
}

func TestFindFirst(t *testing.T) {
	ctx := context.Background()

	t.Run("GrowsPageLimit", func(t *testing.T) {
		store := newStore()
		e := players(t, store)
		seedPlayers(t, e, 100)
		store.Reset()

		item, err := e.FindFirst(ctx, storagemodels.Query{Where: filter.Filter{"PlayerId": "p99"}})
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "p99", item["PlayerId"])
		assert.Equal(t, []int32{25, 50, 100}, store.PageLimits())
	})

	t.Run("CapsAtLimit", func(t *testing.T) {
		store := newStore()
		e := players(t, store)
		seedPlayers(t, e, 100)
		store.Reset()

		item, err := e.FindFirst(ctx, storagemodels.Query{Where: filter.Filter{"PlayerId": "p99"}, Limit: 40})
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, []int32{25, 40, 40}, store.PageLimits())
	})

	t.Run("SmallLimit", func(t *testing.T) {
		store := newStore()
		e := players(t, store)
		seedPlayers(t, e, 5)
		store.Reset()

		item, err := e.FindFirst(ctx, storagemodels.Query{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, "p00", item["PlayerId"])
		assert.Equal(t, []int32{2}, store.PageLimits())
	})

	t.Run("NoMatch", func(t *testing.T) {
		store := newStore()
		e := players(t, store)
		seedPlayers(t, e, 30)
		store.Reset()

		item, err := e.FindFirst(ctx, storagemodels.Query{Where: filter.Filter{"Name": "nobody"}})
		require.NoError(t, err)
		assert.Nil(t, item)
		assert.Equal(t, []int32{25, 50}, store.PageLimits())
	})
}

func TestProjection(t *testing.T) {
	ctx := context.Background()
	e := players(t, newStore())
	seedPlayers(t, e, 3)

	items, err := e.FindAll(ctx, storagemodels.Query{
		Where:      filter.Filter{"Rating": filter.Op{L: 1002}},
		Projection: []string{"PlayerId", "Name"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "player 0", items[0]["Name"])
	assert.NotContains(t, items[0], "Rating")
	assert.NotContains(t, items[0], "Kind")
}

func TestStoreFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	throttled := &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
	store := newStore().WithGetError(throttled)
	e := players(t, store, ddb.WithLogger(zap.New(core)))

	_, err := e.FindOne(context.Background(), schema.Key{Sort: "p1"})
	require.Error(t, err)
	assert.True(t, errors.IsOperationError(err))

	var opErr *errors.OperationError
	require.True(t, stderrors.As(err, &opErr))
	assert.Equal(t, "Player", opErr.Entity)
	assert.Equal(t, "findOne", opErr.Operation)
	assert.Equal(t, "an error occurred while trying to find the item", opErr.Message)

	var cause *types.ProvisionedThroughputExceededException
	assert.True(t, stderrors.As(err, &cause))
	assert.Equal(t, 1, store.Calls("GetItem"), "failures are not retried")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "findOne", fields["operation"])
	assert.Equal(t, "Player", fields["entity"])
	assert.Equal(t, testmodels.PlayerTable, fields["table"])
	assert.Equal(t, "request was throttled; retry with backoff", fields["hint"])
}

func TestStoreErrorClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingTable", func(t *testing.T) {
		e := players(t, mock.New())
		_, err := e.FindOne(ctx, schema.Key{Sort: "p1"})
		assert.True(t, errors.IsOperationError(err))
		assert.True(t, errors.IsNotFound(err))
		var rnf *types.ResourceNotFoundException
		assert.True(t, stderrors.As(err, &rnf))
	})

	t.Run("ConditionFailed", func(t *testing.T) {
		store := newStore().WithPutError(&types.ConditionalCheckFailedException{Message: aws.String("exists")})
		_, err := players(t, store).Create(ctx, schema.Item{"PlayerId": "p1", "Name": "a"})
		assert.True(t, errors.IsOperationError(err))
		assert.True(t, errors.IsConditionFailed(err))
		assert.False(t, errors.IsNotFound(err))
	})
}
