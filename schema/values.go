/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package schema

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// FormatDate renders a date value in the stored representation, an ISO-8601
// UTC timestamp with millisecond precision ("2023-10-10T00:00:00.000Z").
// Strings are parsed first so that equivalent inputs store identically.
func FormatDate(v any) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return strfmt.DateTime(d.UTC()).String(), nil
	case *time.Time:
		if d == nil {
			return "", fmt.Errorf("nil date")
		}
		return strfmt.DateTime(d.UTC()).String(), nil
	case strfmt.DateTime:
		return strfmt.DateTime(time.Time(d).UTC()).String(), nil
	case *strfmt.DateTime:
		if d == nil {
			return "", fmt.Errorf("nil date")
		}
		return strfmt.DateTime(time.Time(*d).UTC()).String(), nil
	case string:
		parsed, err := ParseDate(d)
		if err != nil {
			return "", err
		}
		return strfmt.DateTime(time.Time(parsed).UTC()).String(), nil
	}
	return "", fmt.Errorf("cannot use %T as a date", v)
}

// ParseDate parses a stored date string.
func ParseDate(s string) (strfmt.DateTime, error) {
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		return strfmt.DateTime{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return strfmt.DateTime(time.Time(dt).UTC()), nil
}

// IsDate reports whether v is one of the accepted date value types.
func IsDate(v any) bool {
	switch v.(type) {
	case time.Time, *time.Time, strfmt.DateTime, *strfmt.DateTime:
		return true
	}
	return false
}

// Generators produces generated attribute values.
type Generators struct {
	Now     func() time.Time
	Entropy io.Reader
}

// DefaultGenerators uses the wall clock and crypto/rand.
func DefaultGenerators() Generators {
	return Generators{Now: time.Now, Entropy: rand.Reader}
}

// Generate returns a fresh value for g. Time-based values are returned in the
// stored string representation.
func (gen Generators) Generate(g GeneratorType) (any, error) {
	now := gen.Now
	if now == nil {
		now = time.Now
	}
	switch g {
	case GeneratorUUID:
		return uuid.NewString(), nil
	case GeneratorULID:
		entropy := gen.Entropy
		if entropy == nil {
			entropy = rand.Reader
		}
		id, err := ulid.New(ulid.Timestamp(now()), entropy)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ulid: %w", err)
		}
		return id.String(), nil
	case GeneratorNow:
		return FormatDate(now())
	}
	return nil, fmt.Errorf("unknown generator %q", g)
}
