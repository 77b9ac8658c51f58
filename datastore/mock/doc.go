/*
Package mock provides an in-memory implementation of datastore.Store for tests.

The store runs on a minidyn client (github.com/truora/minidyn), which parses
and evaluates key condition, filter, condition, projection and update
expressions, so tests exercise the exact requests the driver builds. Tables
are declared up front with their key attributes:

	store := mock.New().
	    WithTable("users", "id", "", mock.Index{Name: "byEmail", PartitionKey: "email"})

On top of minidyn the store

  - applies Limit to the items evaluated, before FilterExpression,
  - answers unknown tables with ResourceNotFoundException,
  - returns ALL_OLD and ALL_NEW images on DeleteItem and UpdateItem,
  - caps BatchWriteItem at 25 requests,
  - snapshots tables on CreateBackup.

Failures are injected with the With...Error options, and WithUnprocessed
leaves the tail of every batch unprocessed. PageLimits, BatchSizes and
TransactSizes record the calls for assertions.
*/
package mock
