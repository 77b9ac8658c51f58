/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package schema

import (
	"fmt"

	"github.com/MaxiMittel/dynormo/errors"
)

// Item is a decoded entity value keyed by attribute name.
type Item map[string]any

// Key identifies one item. Components pinned by a static value in the schema
// are filled in by ResolveKey and may be left nil.
type Key struct {
	Partition any
	Sort      any
}

// Index describes a secondary index over the entity's table.
type Index struct {
	Name         string `json:"name" yaml:"name" validate:"required"`
	PartitionKey string `json:"partitionKey" yaml:"partitionKey" validate:"required"`
	SortKey      string `json:"sortKey,omitempty" yaml:"sortKey,omitempty"`
}

// Entity is the schema of one entity type, as read from a definition file.
type Entity struct {
	Name       string     `json:"name" yaml:"name" validate:"required"`
	Table      string     `json:"table,omitempty" yaml:"table,omitempty"`
	Attributes Attributes `json:"attributes" yaml:"attributes" validate:"required,min=1"`
	Indexes    []Index    `json:"indexes,omitempty" yaml:"indexes,omitempty" validate:"dive"`
}

// PartitionKey returns the name and definition of the partition key attribute.
func (e *Entity) PartitionKey() (string, *Attribute) {
	for _, na := range e.Attributes {
		if na.Attribute.PartitionKey {
			return na.Name, na.Attribute
		}
	}
	return "", nil
}

// SortKey returns the name and definition of the sort key attribute, if any.
func (e *Entity) SortKey() (string, *Attribute) {
	for _, na := range e.Attributes {
		if na.Attribute.SortKey {
			return na.Name, na.Attribute
		}
	}
	return "", nil
}

// IsKey reports whether name is the table's partition or sort key.
func (e *Entity) IsKey(name string) bool {
	pk, _ := e.PartitionKey()
	sk, _ := e.SortKey()
	return name == pk || (sk != "" && name == sk)
}

// Index returns the secondary index with the given name.
func (e *Entity) Index(name string) (Index, bool) {
	for _, idx := range e.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// KeyAttributes returns the partition and sort attribute names of the table
// (indexName == "") or of the named secondary index.
func (e *Entity) KeyAttributes(indexName string) (string, string, error) {
	if indexName == "" {
		pk, _ := e.PartitionKey()
		sk, _ := e.SortKey()
		return pk, sk, nil
	}
	idx, ok := e.Index(indexName)
	if !ok {
		return "", "", errors.NewValidationError("index", fmt.Sprintf("entity %s has no index %q", e.Name, indexName))
	}
	return idx.PartitionKey, idx.SortKey, nil
}

// ResolveKey builds the primary key of an item from k, substituting static
// key values.
func (e *Entity) ResolveKey(k Key) (Item, error) {
	key := Item{}

	pkName, pkAttr := e.PartitionKey()
	if pkAttr == nil {
		return nil, errors.NewValidationError("partitionKey", fmt.Sprintf("entity %s has no partition key", e.Name))
	}
	switch {
	case pkAttr.IsStatic():
		key[pkName] = pkAttr.StaticValue
	case k.Partition != nil:
		key[pkName] = k.Partition
	default:
		return nil, errors.NewValidationError(pkName, "partition key value is required")
	}

	skName, skAttr := e.SortKey()
	if skAttr == nil {
		return key, nil
	}
	switch {
	case skAttr.IsStatic():
		key[skName] = skAttr.StaticValue
	case k.Sort != nil:
		key[skName] = k.Sort
	default:
		return nil, errors.NewValidationError(skName, "sort key value is required")
	}
	return key, nil
}

// KeyOf extracts the primary key of a decoded or raw item.
func (e *Entity) KeyOf(item Item) Key {
	pk, _ := e.PartitionKey()
	k := Key{Partition: item[pk]}
	if sk, _ := e.SortKey(); sk != "" {
		k.Sort = item[sk]
	}
	return k
}
