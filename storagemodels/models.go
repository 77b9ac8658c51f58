/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MaxiMittel/dynormo/filter"
)

// Query describes a FindMany/FindFirst/FindAll/DeleteMany request.
// Without Key the driver scans; with Key it queries the table or Index.
type Query struct {
	// Where is compiled into the filter expression.
	Where filter.Filter
	// Key is compiled into the key condition expression.
	Key filter.Filter
	// Index optionally names a secondary index of the entity.
	Index string
	// Limit is the store page limit, not a cap on matching items.
	Limit int32
	// StartKey resumes from a cursor returned as Result.LastKey. FindAll and
	// DeleteMany always start from the beginning.
	StartKey map[string]types.AttributeValue
	// ConsistentRead requests strongly consistent reads.
	ConsistentRead bool
	// ScanIndexForward sets the sort key order of a query. Nil keeps the store default (ascending).
	ScanIndexForward *bool
	// Projection restricts the returned attributes. DeleteMany ignores it.
	Projection []string
}

// Result is one page of items.
type Result[T any] struct {
	Items []T
	// LastKey is the cursor of the next page, nil when the scan or query is exhausted.
	LastKey map[string]types.AttributeValue
	// Count is the number of items in this page.
	Count int
}

// EventType identifies a mutation that subscribers can observe.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Valid reports whether t is a known event kind.
func (t EventType) Valid() bool {
	switch t {
	case EventCreate, EventUpdate, EventDelete:
		return true
	}
	return false
}

// Event is delivered to subscribers after a successful mutation.
type Event[T any] struct {
	Type EventType
	// Item is the created or updated image, or the removed item for DELETE.
	Item T
	// Previous is the image before an UPDATE. Zero for other events.
	Previous T
}
