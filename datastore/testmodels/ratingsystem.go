/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

// Package testmodels holds entity schemas and matching structs shared by tests.
package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/MaxiMittel/dynormo/schema"
)

// RatingSystemTable is the table RatingSystem items are stored in.
const RatingSystemTable = "rating-systems"

// RatingSystem mirrors the RatingSystemSchema attributes. Fields with a
// generator or default are omitted from JSON when unset.
type RatingSystem struct {
	ID          string           `json:"Id,omitempty"`
	Name        string           `json:"Name"`
	Description *string          `json:"Description"`
	Status      string           `json:"Status,omitempty"`
	Tags        []string         `json:"Tags"`
	Scores      []float64        `json:"Scores"`
	CreatedAt   *strfmt.DateTime `json:"CreatedAt,omitempty"`
	Settings    *RatingSettings  `json:"Settings,omitempty"`
	Levels      []RatingLevel    `json:"Levels"`
}

// RatingSettings is the nested Settings map.
type RatingSettings struct {
	Scale  float64  `json:"Scale,omitempty"`
	Labels []string `json:"Labels"`
}

// RatingLevel is one element of the Levels list.
type RatingLevel struct {
	Name string  `json:"Name"`
	Min  float64 `json:"Min,omitempty"`
}

// RatingSystemSchema is a single-key entity with generated ids, defaults,
// collections and a status index.
func RatingSystemSchema() *schema.Entity {
	return &schema.Entity{
		Name:  "RatingSystem",
		Table: RatingSystemTable,
		Attributes: schema.Attributes{
			{Name: "Id", Attribute: &schema.Attribute{Type: schema.TypeString, PartitionKey: true, Generator: schema.GeneratorUUID}},
			{Name: "Name", Attribute: &schema.Attribute{Type: schema.TypeString}},
			{Name: "Description", Attribute: &schema.Attribute{Type: schema.TypeString, Nullable: true}},
			{Name: "Status", Attribute: &schema.Attribute{Type: schema.TypeString, DefaultValue: "active"}},
			{Name: "Tags", Attribute: &schema.Attribute{Type: schema.TypeStringSet}},
			{Name: "Scores", Attribute: &schema.Attribute{Type: schema.TypeNumberList}},
			{Name: "CreatedAt", Attribute: &schema.Attribute{Type: schema.TypeDate, Generator: schema.GeneratorNow}},
			{Name: "Settings", Attribute: &schema.Attribute{Type: schema.TypeMap, Properties: schema.Attributes{
				{Name: "Scale", Attribute: &schema.Attribute{Type: schema.TypeNumber, DefaultValue: 10}},
				{Name: "Labels", Attribute: &schema.Attribute{Type: schema.TypeStringList}},
			}}},
			{Name: "Levels", Attribute: &schema.Attribute{Type: schema.TypeMapList, Properties: schema.Attributes{
				{Name: "Name", Attribute: &schema.Attribute{Type: schema.TypeString}},
				{Name: "Min", Attribute: &schema.Attribute{Type: schema.TypeNumber, DefaultValue: 0}},
			}}},
		},
		Indexes: []schema.Index{
			{Name: "ByStatus", PartitionKey: "Status", SortKey: "CreatedAt"},
		},
	}
}

// PlayerTable is the table Player items are stored in.
const PlayerTable = "players"

// Player mirrors the PlayerSchema attributes.
type Player struct {
	Kind     string  `json:"Kind,omitempty"`
	PlayerID string  `json:"PlayerId"`
	Name     string  `json:"Name"`
	Rating   float64 `json:"Rating,omitempty"`
	Club     *string `json:"Club"`
	Ranked   bool    `json:"Ranked"`
}

// PlayerSchema stores every player in one partition: the partition key is
// pinned to a static value and PlayerId is the sort key.
func PlayerSchema() *schema.Entity {
	return &schema.Entity{
		Name:  "Player",
		Table: PlayerTable,
		Attributes: schema.Attributes{
			{Name: "Kind", Attribute: &schema.Attribute{Type: schema.TypeString, PartitionKey: true, StaticValue: "PLAYER"}},
			{Name: "PlayerId", Attribute: &schema.Attribute{Type: schema.TypeString, SortKey: true}},
			{Name: "Name", Attribute: &schema.Attribute{Type: schema.TypeString}},
			{Name: "Rating", Attribute: &schema.Attribute{Type: schema.TypeNumber, DefaultValue: 1500}},
			{Name: "Club", Attribute: &schema.Attribute{Type: schema.TypeString, Nullable: true}},
			{Name: "Ranked", Attribute: &schema.Attribute{Type: schema.TypeBoolean, DefaultValue: false}},
		},
	}
}
