/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package transform

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
)

// Op is the kind of a plan step.
type Op string

const (
	// OpAdd sets Attribute to the value of Expr.
	OpAdd Op = "add"
	// OpSet sets Attribute to the literal Value.
	OpSet Op = "set"
	// OpRemove removes Attribute.
	OpRemove Op = "remove"
	// OpRename moves Attribute to To.
	OpRename Op = "rename"
	// OpMap sets Attribute to the value of Expr, or replaces the whole item
	// with it when Attribute is empty.
	OpMap Op = "map"
	// OpFilter keeps only items for which Expr is true.
	OpFilter Op = "filter"
	// OpDelete deletes items for which Expr is true.
	OpDelete Op = "delete"
)

// Step is one instruction of a plan. Expressions are CEL over the variable
// item, a map of the stored attributes.
type Step struct {
	Op        Op     `yaml:"op" json:"op" validate:"required,oneof=add set remove rename map filter delete"`
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	To        string `yaml:"to,omitempty" json:"to,omitempty"`
	Value     any    `yaml:"value,omitempty" json:"value,omitempty"`
	Expr      string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// Plan is a declarative transformation of every item of a table.
type Plan struct {
	Name string `yaml:"name" json:"name" validate:"required"`

	// Entity optionally names the entity whose table and key the plan
	// works on; see Bind.
	Entity string `yaml:"entity,omitempty" json:"entity,omitempty"`

	Table        string `yaml:"table,omitempty" json:"table,omitempty"`
	PartitionKey string `yaml:"partitionKey,omitempty" json:"partitionKey,omitempty"`
	SortKey      string `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`

	Steps    []Step `yaml:"steps" json:"steps" validate:"required,min=1,dive"`
	Rollback []Step `yaml:"rollback,omitempty" json:"rollback,omitempty" validate:"dive"`
}

var validate = validator.New()

// ParsePlan decodes a YAML (or JSON) plan and checks its structure.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse transformation plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPlan reads the plan stored at path.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transformation plan %s: %w", path, err)
	}
	p, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate checks the struct rules of the plan and the fields each step
// requires. Table and key names are checked by New, after Bind.
func (p *Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return fmt.Errorf("plan validation: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed on rule '%s'", fe.Namespace(), fe.Tag()))
		}
		return errors.NewValidationError("plan", strings.Join(msgs, "; "))
	}
	for i, s := range p.Steps {
		if err := s.check(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	for i, s := range p.Rollback {
		if err := s.check(); err != nil {
			return fmt.Errorf("rollback step %d: %w", i, err)
		}
	}
	return nil
}

func (s Step) check() error {
	field := "step." + string(s.Op)
	switch s.Op {
	case OpAdd, OpSet, OpRemove, OpRename:
		if s.Attribute == "" {
			return errors.NewValidationError(field, "attribute is required")
		}
	}
	switch s.Op {
	case OpAdd, OpMap, OpFilter, OpDelete:
		if s.Expr == "" {
			return errors.NewValidationError(field, "expr is required")
		}
	case OpRename:
		if s.To == "" {
			return errors.NewValidationError(field, "to is required")
		}
	case OpSet:
		if s.Expr != "" {
			return errors.NewValidationError(field, "set takes a literal value, use add or map for expressions")
		}
	}
	return nil
}

// Bind fills the table and key attributes of the plan from entity. A table
// named by the plan wins over table.
func (p *Plan) Bind(entity *schema.Entity, table string) error {
	if p.Entity != "" && p.Entity != entity.Name {
		return errors.NewValidationError("entity", fmt.Sprintf("plan targets %s, not %s", p.Entity, entity.Name))
	}
	pk, sk, err := entity.KeyAttributes("")
	if err != nil {
		return err
	}
	if p.Table == "" {
		p.Table = table
	}
	if p.Table == "" {
		p.Table = entity.Table
	}
	p.PartitionKey = pk
	p.SortKey = sk
	return nil
}

// Scaffold returns a plan document to start a new transformation from.
func Scaffold(name, entity string) ([]byte, error) {
	p := Plan{
		Name:   name,
		Entity: entity,
		Steps: []Step{
			{Op: OpFilter, Expr: "has(item.Status)"},
			{Op: OpAdd, Attribute: "Migrated", Expr: "true"},
		},
		Rollback: []Step{
			{Op: OpRemove, Attribute: "Migrated"},
		},
	}
	if entity == "" {
		p.Table = "my-table"
		p.PartitionKey = "Id"
	}
	out, err := yaml.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return out, nil
}
