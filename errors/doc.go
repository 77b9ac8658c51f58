/*
Package errors provides semantic error types for dynormo.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrNoSchema        = errors.New("no schema registered for entity")
	    ErrOperation       = errors.New("store operation failed")
	    ErrPartialBatch    = errors.New("batch left unprocessed items")
	)

Not-found is not an error for lookups: FindOne and FindFirst return a nil item.
Every failed store round-trip surfaces as an *OperationError that carries an
operation-scoped message and wraps the store error:

	user, err := users.FindOne(ctx, schema.Key{Partition: "123"})
	if err != nil {
	    if errors.IsOperationError(err) {
	        // the store call failed; retry policy is up to the caller
	    }
	    return nil, err
	}
	if user == nil {
	    // not found
	}

The store error is classified on the way out, so a missing table also
matches IsNotFound and a failed condition matches IsConditionFailed:

	if errors.IsNotFound(err) {
	    // the table does not exist in this region or account
	}

Schema, key and filter shape problems are *ValidationError values:

	err := errors.NewValidationError("email", "invalid format")
*/
package errors
