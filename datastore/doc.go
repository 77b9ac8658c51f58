/*
Package datastore defines the persistence interfaces of dynormo.

Store is the narrow slice of the DynamoDB API the driver uses. A
*dynamodb.Client satisfies it directly; tests use the in-memory mock.Store.

DataStore[T] is the per-entity accessor:

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

Implementations:
  - ddb: the schema-driven driver over a Store (T = schema.Item)
  - dynormo.Typed: struct mapping on top of ddb (T = *U)

Lookups that find nothing return a nil item and no error.
*/
package datastore
