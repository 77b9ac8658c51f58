/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/MaxiMittel/dynormo/errors"
)

// Operation names used in logs and OperationError.
const (
	opFindOne    = "findOne"
	opFindMany   = "findMany"
	opCreate     = "create"
	opCreateMany = "createMany"
	opUpdate     = "update"
	opDelete     = "delete"
	opDeleteMany = "deleteMany"
	opStream     = "stream"
)

// fail logs a failed store call and wraps it into an OperationError.
func (e *Entity) fail(op, message string, params any, err error) error {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Any("params", params),
		zap.Error(err),
	}
	if h := hint(err); h != "" {
		fields = append(fields, zap.String("hint", h))
	}
	e.logger.Error(message, fields...)
	return errors.NewOperationError(e.schema.Name, op, message, e.classify(op, err))
}

// classify attaches the semantic error matching a store error code, so that
// IsConditionFailed and IsNotFound see through the OperationError.
func (e *Entity) classify(op string, err error) error {
	var apiErr smithy.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "ConditionalCheckFailedException":
		return fmt.Errorf("%w: %w", errors.NewConditionFailedError(op, apiErr.ErrorMessage()), err)
	case "ResourceNotFoundException":
		return fmt.Errorf("%w: %w", errors.NewNotFoundError("table", e.tableName), err)
	}
	return err
}

func (e *Entity) debug(op string, params any) {
	e.logger.Debug("store request", zap.String("operation", op), zap.Any("params", params))
}

// hint classifies a store error for the log line.
func hint(err error) string {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return "request canceled or timed out"
	}
	if errors.IsPartialBatch(err) {
		return "batch partially applied; unprocessed requests were not retried"
	}
	var apiErr smithy.APIError
	if !stderrors.As(err, &apiErr) {
		return ""
	}
	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException":
		return "table or index does not exist or is not active"
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
		return "request was throttled; retry with backoff"
	case "ValidationException":
		return "request was rejected as invalid: " + apiErr.ErrorMessage()
	case "ConditionalCheckFailedException":
		return "condition check failed"
	case "TransactionCanceledException":
		return "transaction canceled"
	case "UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException",
		"AccessDeniedException", "MissingAuthenticationTokenException":
		return "check AWS credentials and permissions"
	case "InternalServerError", "ServiceUnavailable":
		return "service error; retry later"
	}
	return apiErr.ErrorCode()
}

// isRetryableError determines if a store error is worth retrying
func isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException",
			"RequestLimitExceeded", "InternalServerError", "ServiceUnavailable":
			return true
		}
	}
	var retryable interface{ RetryableError() bool }
	if stderrors.As(err, &retryable) {
		return retryable.RetryableError()
	}
	return false
}
