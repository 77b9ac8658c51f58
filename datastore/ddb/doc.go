/*
Package ddb is the DynamoDB driver behind every entity.

An Entity pairs a runtime schema.Entity with a datastore.Store (a
*dynamodb.Client or the in-memory mock) and implements
datastore.DataStore[schema.Item]:

  - FindOne, FindMany, FindFirst, FindAll and Stream read by key, by key
    condition (Query) or by filter (Scan)
  - Create, CreateMany, Update, Delete and DeleteMany write and notify
    subscribers
  - TxCreate, TxUpdate and TxDelete build TransactWriteItems entries

Queries:
A query with a Key is sent as a Query, otherwise as a Scan. Where filters and
key conditions are compiled by package filter:

	orders, err := entity.FindAll(ctx, storagemodels.Query{
	    Key:   filter.Filter{"customerId": "c-1", "createdAt": filter.Op{Ge: since}},
	    Where: filter.Filter{"status": filter.In("open", "pending")},
	    Limit: 100,
	})

Limit is the page limit handed to the store. The store applies it before the
filter, so pages may come back short or empty while more items remain.

Streaming:

	results := entity.Stream(ctx, q,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        log.Printf("processed %d items", p.ItemsProcessed)
	    }),
	)

Store failures are logged through zap and returned as *errors.OperationError.
Nothing is retried except stream pages when WithMaxRetries is set.
*/
package ddb
