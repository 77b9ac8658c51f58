/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package schema

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MaxiMittel/dynormo/errors"
)

var validate = validator.New()

// Validate checks struct-level rules (required fields, known types and
// generators) and the key-role invariants: exactly one partition key, at most
// one sort key, both top-level scalars.
func (e *Entity) Validate() error {
	if err := structError("", validate.Struct(e)); err != nil {
		return err
	}

	var pks, sks []string
	for _, na := range e.Attributes {
		if err := validateAttribute(na.Name, na.Attribute); err != nil {
			return err
		}
		if na.Attribute.PartitionKey {
			pks = append(pks, na.Name)
		}
		if na.Attribute.SortKey {
			sks = append(sks, na.Name)
		}
	}

	if len(pks) != 1 {
		return errors.NewValidationError("partitionKey",
			fmt.Sprintf("entity %s must have exactly one partition key, found %d", e.Name, len(pks)))
	}
	if len(sks) > 1 {
		return errors.NewValidationError("sortKey",
			fmt.Sprintf("entity %s must have at most one sort key, found %s", e.Name, strings.Join(sks, ", ")))
	}
	for _, name := range append(pks, sks...) {
		attr, _ := e.Attributes.Get(name)
		if !isKeyType(attr.Type) {
			return errors.NewValidationError(name, fmt.Sprintf("key attribute cannot be of type %s", attr.Type))
		}
		if attr.PartitionKey && attr.SortKey {
			return errors.NewValidationError(name, "attribute cannot be both partition and sort key")
		}
	}

	for _, idx := range e.Indexes {
		for _, name := range []string{idx.PartitionKey, idx.SortKey} {
			if name == "" {
				continue
			}
			attr, ok := e.Attributes.Get(name)
			if !ok {
				return errors.NewValidationError("indexes",
					fmt.Sprintf("index %s references unknown attribute %q", idx.Name, name))
			}
			if !isKeyType(attr.Type) {
				return errors.NewValidationError("indexes",
					fmt.Sprintf("index %s key %q cannot be of type %s", idx.Name, name, attr.Type))
			}
		}
	}
	return nil
}

func validateAttribute(path string, attr *Attribute) error {
	if attr == nil {
		return errors.NewValidationError(path, "attribute definition is empty")
	}
	if err := structError(path, validate.Struct(attr)); err != nil {
		return err
	}
	if len(attr.Properties) > 0 && !attr.Type.HasProperties() {
		return errors.NewValidationError(path, fmt.Sprintf("type %s cannot declare properties", attr.Type))
	}
	for _, child := range attr.Properties {
		childPath := path + "." + child.Name
		if child.Attribute != nil && (child.Attribute.PartitionKey || child.Attribute.SortKey) {
			return errors.NewValidationError(childPath, "nested attributes cannot be keys")
		}
		if err := validateAttribute(childPath, child.Attribute); err != nil {
			return err
		}
	}
	return nil
}

func isKeyType(t AttributeType) bool {
	return t == TypeString || t == TypeNumber || t == TypeDate
}

func structError(path string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Errorf("schema validation: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed on rule '%s'", fe.Field(), fe.Tag()))
	}
	return errors.NewValidationError(path, strings.Join(msgs, "; "))
}
