/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MaxiMittel/dynormo/datastore"
	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// Entity implements datastore.DataStore[schema.Item] for one entity schema
// over a datastore.Store.
type Entity struct {
	store     datastore.Store
	schema    *schema.Entity
	tableName string
	logger    *zap.Logger
	gen       schema.Generators

	mu          sync.RWMutex
	subscribers map[storagemodels.EventType][]func(storagemodels.Event[schema.Item])
}

var _ datastore.DataStore[schema.Item] = (*Entity)(nil)

// Option configures an Entity.
type Option func(*Entity)

// WithTableName overrides the table named by the schema.
func WithTableName(name string) Option {
	return func(e *Entity) {
		e.tableName = name
	}
}

// WithLogger sets the logger. Requests are logged at debug level, failures at error level.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Entity) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGenerators replaces the clock and entropy used for generated values.
func WithGenerators(gen schema.Generators) Option {
	return func(e *Entity) {
		e.gen = gen
	}
}

// WithClock sets the clock used by the "now" and "ulid" generators.
func WithClock(now func() time.Time) Option {
	return func(e *Entity) {
		e.gen.Now = now
	}
}

// New validates the schema and returns its driver.
func New(store datastore.Store, entity *schema.Entity, opts ...Option) (*Entity, error) {
	if store == nil {
		return nil, errors.NewValidationError("store", "store is required")
	}
	if entity == nil {
		return nil, errors.NewValidationError("schema", "schema is required")
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	e := &Entity{
		store:       store,
		schema:      entity,
		tableName:   entity.Table,
		logger:      zap.NewNop(),
		gen:         schema.DefaultGenerators(),
		subscribers: map[storagemodels.EventType][]func(storagemodels.Event[schema.Item]){},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tableName == "" {
		return nil, errors.NewValidationError("table", "no table name configured for entity "+entity.Name)
	}
	e.logger = e.logger.With(zap.String("entity", entity.Name), zap.String("table", e.tableName))
	return e, nil
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.schema.Name }

// TableName returns the table the entity is stored in.
func (e *Entity) TableName() string { return e.tableName }

// Schema returns the entity schema.
func (e *Entity) Schema() *schema.Entity { return e.schema }
