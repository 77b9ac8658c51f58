/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package dynormo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MaxiMittel/dynormo/datastore"
	"github.com/MaxiMittel/dynormo/datastore/ddb"
	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// Typed exposes an entity driver over a struct type T. Items are converted
// through encoding/json, so the json tags of T name the attributes. Fields
// that should receive a generated or default value on create must be
// omitted from the JSON (omitempty or a nil pointer).
type Typed[T any] struct {
	entity *ddb.Entity
}

var _ datastore.DataStore[*int] = (*Typed[int])(nil)

// NewTyped wraps entity.
func NewTyped[T any](entity *ddb.Entity) *Typed[T] {
	return &Typed[T]{entity: entity}
}

// TypedEntity returns the typed accessor of the named entity of c.
func TypedEntity[T any](c *Client, name string) (*Typed[T], error) {
	e, err := c.Entity(name)
	if err != nil {
		return nil, err
	}
	return NewTyped[T](e), nil
}

// Entity returns the underlying driver.
func (t *Typed[T]) Entity() *ddb.Entity {
	return t.entity
}

func (t *Typed[T]) toItem(v *T) (schema.Item, error) {
	if v == nil {
		return nil, errors.NewValidationError("item", "item is required")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var item schema.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return item, nil
}

func (t *Typed[T]) fromItem(item schema.Item) (*T, error) {
	if item == nil {
		return nil, nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s item: %w", t.entity.Name(), err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to decode %s item: %w", t.entity.Name(), err)
	}
	return out, nil
}

func (t *Typed[T]) fromItems(items []schema.Item) ([]*T, error) {
	out := make([]*T, 0, len(items))
	for _, item := range items {
		v, err := t.fromItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindOne returns the item with key k, or nil.
func (t *Typed[T]) FindOne(ctx context.Context, k schema.Key) (*T, error) {
	item, err := t.entity.FindOne(ctx, k)
	if err != nil {
		return nil, err
	}
	return t.fromItem(item)
}

// FindMany returns one page of q.
func (t *Typed[T]) FindMany(ctx context.Context, q storagemodels.Query) (*storagemodels.Result[*T], error) {
	res, err := t.entity.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	items, err := t.fromItems(res.Items)
	if err != nil {
		return nil, err
	}
	return &storagemodels.Result[*T]{Items: items, LastKey: res.LastKey, Count: res.Count}, nil
}

// FindFirst returns the first item matching q, or nil.
func (t *Typed[T]) FindFirst(ctx context.Context, q storagemodels.Query) (*T, error) {
	item, err := t.entity.FindFirst(ctx, q)
	if err != nil {
		return nil, err
	}
	return t.fromItem(item)
}

// FindAll returns every item matching q.
func (t *Typed[T]) FindAll(ctx context.Context, q storagemodels.Query) ([]*T, error) {
	items, err := t.entity.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	return t.fromItems(items)
}

// Stream converts the results of the driver stream.
func (t *Typed[T]) Stream(ctx context.Context, q storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*T] {
	in := t.entity.Stream(ctx, q, opts...)
	out := make(chan storagemodels.StreamResult[*T])
	go func() {
		defer close(out)
		for r := range in {
			converted := storagemodels.StreamResult[*T]{Raw: r.Raw, Error: r.Error, Meta: r.Meta}
			if r.Error == nil {
				converted.Item, converted.Error = t.fromItem(r.Item)
			}
			select {
			case out <- converted:
			case <-ctx.Done():
				for range in {
				}
				return
			}
		}
	}()
	return out
}

// Create writes v and returns the stored record.
func (t *Typed[T]) Create(ctx context.Context, v *T) (*T, error) {
	item, err := t.toItem(v)
	if err != nil {
		return nil, err
	}
	created, err := t.entity.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	return t.fromItem(created)
}

// CreateMany writes values in batches and returns the stored records.
func (t *Typed[T]) CreateMany(ctx context.Context, values []*T) ([]*T, error) {
	items := make([]schema.Item, len(values))
	for i, v := range values {
		item, err := t.toItem(v)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	created, err := t.entity.CreateMany(ctx, items)
	if err != nil {
		return nil, err
	}
	return t.fromItems(created)
}

// Update applies patch to the item with key k.
func (t *Typed[T]) Update(ctx context.Context, k schema.Key, patch schema.Item) (*T, error) {
	updated, err := t.entity.Update(ctx, k, patch)
	if err != nil {
		return nil, err
	}
	return t.fromItem(updated)
}

// Delete removes the item with key k.
func (t *Typed[T]) Delete(ctx context.Context, k schema.Key) error {
	return t.entity.Delete(ctx, k)
}

// DeleteMany removes every item matching q.
func (t *Typed[T]) DeleteMany(ctx context.Context, q storagemodels.Query) (int, error) {
	return t.entity.DeleteMany(ctx, q)
}

// Subscribe registers fn for event. Items that cannot be converted to T are
// delivered as nil.
func (t *Typed[T]) Subscribe(event storagemodels.EventType, fn func(storagemodels.Event[*T])) error {
	if fn == nil {
		return errors.NewValidationError("callback", "callback is required")
	}
	return t.entity.Subscribe(event, func(ev storagemodels.Event[schema.Item]) {
		item, _ := t.fromItem(ev.Item)
		previous, _ := t.fromItem(ev.Previous)
		fn(storagemodels.Event[*T]{Type: ev.Type, Item: item, Previous: previous})
	})
}

// TxCreate returns a transactional put of v.
func (t *Typed[T]) TxCreate(v *T) (types.TransactWriteItem, error) {
	item, err := t.toItem(v)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	return t.entity.TxCreate(item)
}
