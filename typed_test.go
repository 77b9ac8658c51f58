/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package dynormo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxiMittel/dynormo"
	"github.com/MaxiMittel/dynormo/datastore/ddb"
	"github.com/MaxiMittel/dynormo/datastore/testmodels"
	"github.com/MaxiMittel/dynormo/filter"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

var clock = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

func TestTypedCreateAndFind(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t, dynormo.WithEntityOptions(ddb.WithClock(func() time.Time { return clock })))
	systems, err := dynormo.TypedEntity[testmodels.RatingSystem](c, "RatingSystem")
	require.NoError(t, err)

	created, err := systems.Create(ctx, &testmodels.RatingSystem{
		Name:   "Elo",
		Tags:   []string{"chess"},
		Levels: []testmodels.RatingLevel{{Name: "master", Min: 2200}, {Name: "novice"}},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "active", created.Status)
	assert.Nil(t, created.Description)
	assert.Equal(t, []float64{}, created.Scores)
	require.NotNil(t, created.CreatedAt)
	assert.True(t, time.Time(*created.CreatedAt).Equal(clock))
	require.NotNil(t, created.Settings)
	assert.Equal(t, float64(10), created.Settings.Scale)
	assert.Equal(t, []testmodels.RatingLevel{{Name: "master", Min: 2200}, {Name: "novice"}}, created.Levels)

	found, err := systems.FindOne(ctx, schema.Key{Partition: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created, found)

	missing, err := systems.FindOne(ctx, schema.Key{Partition: "nope"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTypedQueries(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)
	players, err := dynormo.TypedEntity[testmodels.Player](c, "Player")
	require.NoError(t, err)

	values := make([]*testmodels.Player, 30)
	for i := range values {
		values[i] = &testmodels.Player{PlayerID: fmt.Sprintf("p%02d", i), Name: "player", Rating: float64(1000 + i)}
	}
	created, err := players.CreateMany(ctx, values)
	require.NoError(t, err)
	require.Len(t, created, 30)
	assert.Equal(t, "PLAYER", created[0].Kind)

	page, err := players.FindMany(ctx, storagemodels.Query{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.NotNil(t, page.LastKey)

	top, err := players.FindAll(ctx, storagemodels.Query{Where: filter.Filter{"Rating": filter.Op{Ge: 1025}}})
	require.NoError(t, err)
	assert.Len(t, top, 5)

	first, err := players.FindFirst(ctx, storagemodels.Query{Key: filter.Filter{"PlayerId": filter.BeginsWith("p2")}})
	require.NoError(t, err)
	assert.Equal(t, "p20", first.PlayerID)

	var streamed int
	for r := range players.Stream(ctx, storagemodels.Query{}, storagemodels.WithPageSize(7)) {
		require.NoError(t, r.Error)
		require.NotNil(t, r.Item)
		streamed++
	}
	assert.Equal(t, 30, streamed)

	n, err := players.DeleteMany(ctx, storagemodels.Query{Where: filter.Filter{"Rating": filter.Op{L: 1010}}})
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestTypedMutationsNotify(t *testing.T) {
	ctx := context.Background()
	c, _ := newClient(t)
	players, err := dynormo.TypedEntity[testmodels.Player](c, "Player")
	require.NoError(t, err)

	var events []storagemodels.Event[*testmodels.Player]
	for _, ev := range []storagemodels.EventType{storagemodels.EventCreate, storagemodels.EventUpdate, storagemodels.EventDelete} {
		require.NoError(t, players.Subscribe(ev, func(e storagemodels.Event[*testmodels.Player]) {
			events = append(events, e)
		}))
	}

	club := "TT Oakville"
	_, err = players.Create(ctx, &testmodels.Player{PlayerID: "p1", Name: "Ann", Club: &club})
	require.NoError(t, err)
	updated, err := players.Update(ctx, schema.Key{Sort: "p1"}, schema.Item{"Ranked": true})
	require.NoError(t, err)
	assert.True(t, updated.Ranked)
	require.NoError(t, players.Delete(ctx, schema.Key{Sort: "p1"}))

	require.Len(t, events, 3)
	assert.Equal(t, float64(1500), events[0].Item.Rating)
	assert.Equal(t, "TT Oakville", *events[0].Item.Club)
	assert.False(t, events[1].Previous.Ranked)
	assert.True(t, events[1].Item.Ranked)
	assert.Equal(t, "p1", events[2].Item.PlayerID)
	assert.Nil(t, events[0].Previous)

	_, err = players.Create(ctx, nil)
	assert.Error(t, err)
	assert.Error(t, players.Subscribe(storagemodels.EventCreate, nil))
}

func TestTypedTransaction(t *testing.T) {
	ctx := context.Background()
	c, store := newClient(t)
	players, err := dynormo.TypedEntity[testmodels.Player](c, "Player")
	require.NoError(t, err)

	tx, err := players.TxCreate(&testmodels.Player{PlayerID: "p9", Name: "Tx"})
	require.NoError(t, err)
	require.NoError(t, c.Transaction(ctx, tx))
	assert.Equal(t, 1, store.Count(testmodels.PlayerTable))
	assert.Same(t, c.MustEntity("Player"), players.Entity())
}
