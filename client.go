/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package dynormo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MaxiMittel/dynormo/config"
	"github.com/MaxiMittel/dynormo/datastore"
	"github.com/MaxiMittel/dynormo/datastore/ddb"
	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/logging"
	"github.com/MaxiMittel/dynormo/registry"
	"github.com/MaxiMittel/dynormo/schema"
)

// MaxTransactionSize is the number of writes sent in one TransactWriteItems call.
const MaxTransactionSize = 25

// Client hands out entity drivers over one store. Drivers are created on
// first access and cached; a Client is safe for concurrent use.
type Client struct {
	store      datastore.Store
	registry   *registry.Registry
	tables     map[string]string
	logger     *zap.Logger
	entityOpts []ddb.Option

	mu       sync.Mutex
	entities map[string]*ddb.Entity
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry resolves entities from r instead of registry.Default.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithTables overrides the table of entities, keyed by entity name.
func WithTables(tables map[string]string) Option {
	return func(c *Client) {
		for name, table := range tables {
			c.tables[name] = table
		}
	}
}

// WithLogger sets the logger passed to every entity driver.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEntityOptions appends options applied to every entity driver.
func WithEntityOptions(opts ...ddb.Option) Option {
	return func(c *Client) {
		c.entityOpts = append(c.entityOpts, opts...)
	}
}

// New creates a Client over store.
func New(store datastore.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.NewValidationError("store", "store is required")
	}
	c := &Client{
		store:    store,
		registry: registry.Default,
		tables:   map[string]string{},
		logger:   zap.NewNop(),
		entities: map[string]*ddb.Entity{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig loads the entity definitions named by cfg into a fresh
// registry and connects to DynamoDB with the configured region, endpoint and
// credentials.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.NewValidationError("config", "config is required")
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	r := registry.New()
	for _, path := range cfg.EntityPaths() {
		entity, err := schema.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := r.Register(entity); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
	}, logger)
	if err != nil {
		return nil, err
	}

	base := []Option{WithRegistry(r), WithTables(cfg.Tables), WithLogger(logger)}
	return New(client, append(base, opts...)...)
}

// Entity returns the driver of the named entity, creating it on first use.
func (c *Client) Entity(name string) (*ddb.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entities[name]; ok {
		return e, nil
	}
	entity, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}

	opts := []ddb.Option{ddb.WithLogger(c.logger)}
	if table, ok := c.tables[name]; ok {
		opts = append(opts, ddb.WithTableName(table))
	}
	e, err := ddb.New(c.store, entity, append(opts, c.entityOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}
	c.entities[name] = e
	c.logger.Debug("entity driver created", zap.String("entity", name), zap.String("table", e.TableName()))
	return e, nil
}

// MustEntity is Entity for setup code. It panics when the entity is unknown.
func (c *Client) MustEntity(name string) *ddb.Entity {
	e, err := c.Entity(name)
	if err != nil {
		panic(err)
	}
	return e
}

// Entities returns the names of the entities the client can serve.
func (c *Client) Entities() []string {
	return c.registry.Names()
}

// Raw returns the underlying store for calls the drivers do not cover.
func (c *Client) Raw() datastore.Store {
	return c.store
}

// Transaction writes items in groups of at most 25, one TransactWriteItems
// call per group, issued concurrently. Each group is atomic on its own; a
// failing group does not roll back groups that succeeded.
func (c *Client) Transaction(ctx context.Context, items ...types.TransactWriteItem) error {
	if len(items) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for chunk := range slices.Chunk(items, MaxTransactionSize) {
		input := &dynamodb.TransactWriteItemsInput{TransactItems: chunk}
		g.Go(func() error {
			c.logger.Debug("store request", zap.String("operation", "transaction"), zap.Int("items", len(chunk)))
			if _, err := c.store.TransactWriteItems(gctx, input); err != nil {
				const message = "an error occurred while trying to execute the transaction"
				c.logger.Error(message, zap.String("operation", "transaction"), zap.Any("params", input), zap.Error(err))
				return errors.NewOperationError("client", "transaction", message, err)
			}
			return nil
		})
	}
	return g.Wait()
}
