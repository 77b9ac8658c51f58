/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity or schema lookup misses
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when a name is registered twice
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoSchema is returned when no schema is registered for an entity name
	ErrNoSchema = errors.New("no schema registered for entity")

	// ErrOperation is matched by every OperationError
	ErrOperation = errors.New("store operation failed")

	// ErrPartialBatch is returned when a batch left items unprocessed
	ErrPartialBatch = errors.New("batch left unprocessed items")

	// ErrInvalidEvent is returned for unknown subscription event kinds
	ErrInvalidEvent = errors.New("invalid event type")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// OperationError is returned by every driver operation whose store round-trip failed.
// Message is the human-readable, operation-scoped text; Err keeps the store error.
type OperationError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("[%s][%s] %s: %v", e.Entity, e.Operation, e.Message, e.Err)
}

func (e *OperationError) Is(target error) bool {
	return target == ErrOperation
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// PartialBatchError reports how many requests a batch write did not apply.
type PartialBatchError struct {
	Operation   string
	Unprocessed int
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("%s: %d requests left unprocessed", e.Operation, e.Unprocessed)
}

func (e *PartialBatchError) Is(target error) bool {
	return target == ErrPartialBatch
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewOperationError creates a new OperationError
func NewOperationError(entity, operation, message string, err error) error {
	return &OperationError{Entity: entity, Operation: operation, Message: message, Err: err}
}

// NewPartialBatchError creates a new PartialBatchError
func NewPartialBatchError(operation string, unprocessed int) error {
	return &PartialBatchError{Operation: operation, Unprocessed: unprocessed}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsOperationError checks if an error came from a failed store round-trip
func IsOperationError(err error) bool {
	return errors.Is(err, ErrOperation)
}

// IsPartialBatch checks if an error reports unprocessed batch items
func IsPartialBatch(err error) bool {
	return errors.Is(err, ErrPartialBatch)
}
