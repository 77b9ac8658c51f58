/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package schema

// AttributeType is the semantic type of an attribute.
type AttributeType string

const (
	TypeNumber      AttributeType = "number"
	TypeString      AttributeType = "string"
	TypeBoolean     AttributeType = "boolean"
	TypeDate        AttributeType = "date"
	TypeMap         AttributeType = "map"
	TypeList        AttributeType = "list"
	TypeStringList  AttributeType = "list<string>"
	TypeNumberList  AttributeType = "list<number>"
	TypeBooleanList AttributeType = "list<boolean>"
	TypeDateList    AttributeType = "list<date>"
	TypeMapList     AttributeType = "list<map>"
	TypeStringSet   AttributeType = "set<string>"
	TypeNumberSet   AttributeType = "set<number>"
)

// IsList reports whether values of the type are stored as a list.
func (t AttributeType) IsList() bool {
	switch t {
	case TypeList, TypeStringList, TypeNumberList, TypeBooleanList, TypeDateList, TypeMapList:
		return true
	}
	return false
}

// IsSet reports whether values of the type are stored as a native set.
func (t AttributeType) IsSet() bool {
	return t == TypeStringSet || t == TypeNumberSet
}

// IsCollection reports whether an absent value decodes to an empty collection.
func (t AttributeType) IsCollection() bool {
	return t.IsList() || t.IsSet()
}

// HasProperties reports whether the type carries nested attribute definitions.
func (t AttributeType) HasProperties() bool {
	return t == TypeMap || t == TypeMapList
}

// GeneratorType names a value generator applied on create.
type GeneratorType string

const (
	GeneratorUUID GeneratorType = "uuid"
	GeneratorULID GeneratorType = "ulid"
	GeneratorNow  GeneratorType = "now"
)

// Attribute describes one field of an entity.
type Attribute struct {
	Type         AttributeType `json:"type" yaml:"type" validate:"required,oneof=number string boolean date map list list<string> list<number> list<boolean> list<date> list<map> set<string> set<number>"`
	StaticValue  any           `json:"staticValue,omitempty" yaml:"staticValue,omitempty"`
	DefaultValue any           `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Properties   Attributes    `json:"properties,omitempty" yaml:"properties,omitempty"`
	Generator    GeneratorType `json:"generator,omitempty" yaml:"generator,omitempty" validate:"omitempty,oneof=uuid ulid now"`
	PartitionKey bool          `json:"partitionKey,omitempty" yaml:"partitionKey,omitempty"`
	SortKey      bool          `json:"sortKey,omitempty" yaml:"sortKey,omitempty"`
	Nullable     bool          `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	As           string        `json:"as,omitempty" yaml:"as,omitempty"`
}

// IsStatic reports whether the attribute is pinned to a constant.
func (a *Attribute) IsStatic() bool {
	return a.StaticValue != nil
}

// NamedAttribute pairs an attribute with its name.
type NamedAttribute struct {
	Name      string
	Attribute *Attribute
}

// Attributes is an ordered set of attributes. Definition order is kept so that
// generated declarations and create payloads follow the definition file.
type Attributes []NamedAttribute

// Get returns the attribute with the given name.
func (a Attributes) Get(name string) (*Attribute, bool) {
	for _, na := range a {
		if na.Name == name {
			return na.Attribute, true
		}
	}
	return nil, false
}

// Names returns the attribute names in definition order.
func (a Attributes) Names() []string {
	names := make([]string, len(a))
	for i, na := range a {
		names[i] = na.Name
	}
	return names
}
