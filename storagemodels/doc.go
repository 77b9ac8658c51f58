/*
Package storagemodels defines the request, result and event types shared by
the dynormo driver and its callers.

Query:
Parameters of a paginated read:

	q := storagemodels.Query{
	    Key:   filter.Filter{"userId": "123", "createdAt": filter.Op{Ge: since}},
	    Where: filter.Filter{"status": "active"},
	    Index: "byUser",
	    Limit: 50,
	}

A Query without Key is served by a Scan. Limit is handed to the store as the
page limit: the store evaluates at most Limit items before applying Where, so
a page may hold fewer matches than Limit while LastKey is still set.

Result:
One page of items plus the cursor of the next page:

	type Result[T any] struct {
	    Items   []T
	    LastKey map[string]types.AttributeValue // nil once exhausted
	    Count   int
	}

Event:
Delivered to subscribers after CREATE, UPDATE and DELETE.

StreamResult and StreamOptions configure channel-based streaming:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels
