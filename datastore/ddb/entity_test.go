/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxiMittel/dynormo/datastore/ddb"
	"github.com/MaxiMittel/dynormo/datastore/mock"
	"github.com/MaxiMittel/dynormo/datastore/testmodels"
	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// ticking returns a clock advancing one minute per call, starting at epoch.
func ticking() func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return epoch.Add(time.Duration(n) * time.Minute)
	}
}

func newStore() *mock.Store {
	return mock.New().
		WithTable(testmodels.RatingSystemTable, "Id", "", mock.Index{Name: "ByStatus", PartitionKey: "Status", SortKey: "CreatedAt"}).
		WithTable(testmodels.PlayerTable, "Kind", "PlayerId")
}

func ratingSystems(t *testing.T, store *mock.Store, opts ...ddb.Option) *ddb.Entity {
	t.Helper()
	opts = append([]ddb.Option{ddb.WithClock(func() time.Time { return epoch })}, opts...)
	e, err := ddb.New(store, testmodels.RatingSystemSchema(), opts...)
	require.NoError(t, err)
	return e
}

func players(t *testing.T, store *mock.Store, opts ...ddb.Option) *ddb.Entity {
	t.Helper()
	e, err := ddb.New(store, testmodels.PlayerSchema(), opts...)
	require.NoError(t, err)
	return e
}

// seedPlayers creates players p00..p<n-1>.
func seedPlayers(t *testing.T, e *ddb.Entity, n int) {
	t.Helper()
	for i := range n {
		_, err := e.Create(context.Background(), schema.Item{
			"PlayerId": fmt.Sprintf("p%02d", i),
			"Name":     fmt.Sprintf("player %d", i),
			"Rating":   1000 + i,
		})
		require.NoError(t, err)
	}
}

func TestNew(t *testing.T) {
	t.Run("RequiresStore", func(t *testing.T) {
		_, err := ddb.New(nil, testmodels.PlayerSchema())
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("RejectsInvalidSchema", func(t *testing.T) {
		entity := testmodels.PlayerSchema()
		entity.Attributes[0].Attribute.PartitionKey = false
		_, err := ddb.New(newStore(), entity)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("RequiresTable", func(t *testing.T) {
		entity := testmodels.PlayerSchema()
		entity.Table = ""
		_, err := ddb.New(newStore(), entity)
		assert.True(t, errors.IsValidationError(err))

		e, err := ddb.New(newStore(), entity, ddb.WithTableName("override"))
		require.NoError(t, err)
		assert.Equal(t, "override", e.TableName())
		assert.Equal(t, "Player", e.Name())
	})
}

func TestCreateFillsDefaults(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	e := ratingSystems(t, store)

	created, err := e.Create(ctx, schema.Item{"Name": "Elo"})
	require.NoError(t, err)

	assert.NotEmpty(t, created["Id"])
	assert.Equal(t, "Elo", created["Name"])
	assert.Equal(t, "active", created["Status"])
	assert.Contains(t, created, "Description")
	assert.Nil(t, created["Description"])
	assert.Equal(t, []string{}, created["Tags"])
	assert.Equal(t, []float64{}, created["Scores"])
	assert.Equal(t, []schema.Item{}, created["Levels"])
	assert.Equal(t, schema.Item{"Scale": float64(10), "Labels": []string{}}, created["Settings"])
	require.IsType(t, strfmt.DateTime{}, created["CreatedAt"])
	assert.True(t, time.Time(created["CreatedAt"].(strfmt.DateTime)).Equal(epoch))

	stored := store.Items(testmodels.RatingSystemTable)
	require.Len(t, stored, 1)
	assert.NotContains(t, stored[0], "Tags", "empty sets are not stored")
	assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, stored[0]["Description"])
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, stored[0]["Scores"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-03-01T12:00:00.000Z"}, stored[0]["CreatedAt"])
}

func TestCreateKeepsSuppliedValues(t *testing.T) {
	ctx := context.Background()
	e := ratingSystems(t, newStore())

	created, err := e.Create(ctx, schema.Item{
		"Id":     "elo",
		"Name":   "Elo",
		"Status": "draft",
		"Tags":   []string{"chess", "classic"},
		"Levels": []any{map[string]any{"Name": "gold"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "elo", created["Id"])
	assert.Equal(t, "draft", created["Status"])
	assert.ElementsMatch(t, []string{"chess", "classic"}, created["Tags"])
	assert.Equal(t, []schema.Item{{"Name": "gold", "Min": float64(0)}}, created["Levels"])
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := ratingSystems(t, newStore())

	created, err := e.Create(ctx, schema.Item{
		"Name":        "Glicko",
		"Description": "rating deviation based",
		"Tags":        []string{"tennis"},
		"Scores":      []float64{1.5, 2},
		"Settings":    map[string]any{"Scale": 400, "Labels": []string{"low", "high"}},
	})
	require.NoError(t, err)

	found, err := e.FindOne(ctx, schema.Key{Partition: created["Id"]})
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestFindOneMissing(t *testing.T) {
	e := ratingSystems(t, newStore())
	item, err := e.FindOne(context.Background(), schema.Key{Partition: "nope"})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestStaticPartitionKey(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	e := players(t, store)

	created, err := e.Create(ctx, schema.Item{"Kind": "IGNORED", "PlayerId": "p1", "Name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "PLAYER", created["Kind"])
	assert.Equal(t, float64(1500), created["Rating"])
	assert.Equal(t, false, created["Ranked"])
	assert.Nil(t, created["Club"])

	found, err := e.FindOne(ctx, schema.Key{Sort: "p1"})
	require.NoError(t, err)
	assert.Equal(t, created, found)

	_, err = e.FindOne(ctx, schema.Key{})
	assert.True(t, errors.IsValidationError(err), "sort key is required")
}

func TestCreateRequiresKeys(t *testing.T) {
	store := newStore()
	_, err := players(t, store).Create(context.Background(), schema.Item{"Name": "Ann"})
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, store.Calls("PutItem"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	e := players(t, store)
	seedPlayers(t, e, 2)

	require.NoError(t, e.Delete(ctx, schema.Key{Sort: "p00"}))
	require.NoError(t, e.Delete(ctx, schema.Key{Sort: "p00"}))

	item, err := e.FindOne(ctx, schema.Key{Sort: "p00"})
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 1, store.Count(testmodels.PlayerTable))
}
