/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package mock

import (
	"bytes"
	"encoding/hex"
	"maps"
	"math/big"
	"regexp"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Placeholder names used to add the primary key to a projection.
const (
	partitionKeyRef = "#mock_pk"
	sortKeyRef      = "#mock_sk"
)

var placeholderPattern = regexp.MustCompile(`[#:][A-Za-z0-9_]+`)

type keySchema struct {
	partitionKey string
	sortKey      string
}

// identity returns the primary key of item as a comparable string.
func (k keySchema) identity(item map[string]types.AttributeValue) string {
	id := keyString(item[k.partitionKey])
	if k.sortKey != "" {
		id += "|" + keyString(item[k.sortKey])
	}
	return id
}

func (k keySchema) compare(a, b map[string]types.AttributeValue) int {
	if c := compareKey(a[k.partitionKey], b[k.partitionKey]); c != 0 || k.sortKey == "" {
		return c
	}
	return compareKey(a[k.sortKey], b[k.sortKey])
}

// within returns the items of matched whose primary key is among evaluated,
// restricted to the projected attributes.
func (k keySchema) within(matched, evaluated []map[string]types.AttributeValue, projection *string, names map[string]string) []map[string]types.AttributeValue {
	seen := make(map[string]bool, len(evaluated))
	for _, item := range evaluated {
		seen[k.identity(item)] = true
	}
	attrs := projected(projection, names)

	items := make([]map[string]types.AttributeValue, 0, len(matched))
	for _, item := range matched {
		if !seen[k.identity(item)] {
			continue
		}
		if len(attrs) > 0 {
			item = maps.Clone(item)
			maps.DeleteFunc(item, func(name string, _ types.AttributeValue) bool {
				return !slices.Contains(attrs, name)
			})
		}
		items = append(items, item)
	}
	return items
}

// withKeys adds the primary key attributes to a projection so matched items
// can be told apart.
func withKeys(k keySchema, projection *string, names map[string]string) (*string, map[string]string) {
	attrs := projected(projection, names)
	if len(attrs) == 0 {
		return projection, names
	}
	expr := aws.ToString(projection)
	names = maps.Clone(names)
	if names == nil {
		names = map[string]string{}
	}
	if !slices.Contains(attrs, k.partitionKey) {
		expr += ", " + partitionKeyRef
		names[partitionKeyRef] = k.partitionKey
	}
	if k.sortKey != "" && !slices.Contains(attrs, k.sortKey) {
		expr += ", " + sortKeyRef
		names[sortKeyRef] = k.sortKey
	}
	return aws.String(expr), names
}

// projected returns the top-level attributes named by a projection expression.
func projected(projection *string, names map[string]string) []string {
	expr := strings.TrimSpace(aws.ToString(projection))
	if expr == "" {
		return nil
	}
	var attrs []string
	for _, p := range strings.Split(expr, ",") {
		p = strings.TrimSpace(p)
		if i := strings.IndexAny(p, ".["); i >= 0 {
			p = p[:i]
		}
		if strings.HasPrefix(p, "#") {
			p = names[p]
		}
		attrs = append(attrs, p)
	}
	return attrs
}

// referenced returns the names and values an expression refers to.
func referenced(expr string, names map[string]string, values map[string]types.AttributeValue) (map[string]string, map[string]types.AttributeValue) {
	var outNames map[string]string
	var outValues map[string]types.AttributeValue
	for _, ref := range placeholderPattern.FindAllString(expr, -1) {
		if ref[0] == '#' {
			if v, ok := names[ref]; ok {
				if outNames == nil {
					outNames = map[string]string{}
				}
				outNames[ref] = v
			}
			continue
		}
		if v, ok := values[ref]; ok {
			if outValues == nil {
				outValues = map[string]types.AttributeValue{}
			}
			outValues[ref] = v
		}
	}
	return outNames, outValues
}

func keyString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S" + v.Value
	case *types.AttributeValueMemberN:
		return "N" + v.Value
	case *types.AttributeValueMemberB:
		return "B" + hex.EncodeToString(v.Value)
	}
	return ""
}

func compareKey(a, b types.AttributeValue) int {
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		if y, ok := b.(*types.AttributeValueMemberS); ok {
			return strings.Compare(x.Value, y.Value)
		}
	case *types.AttributeValueMemberN:
		if y, ok := b.(*types.AttributeValueMemberN); ok {
			fx, _, errx := big.ParseFloat(x.Value, 10, 128, big.ToNearestEven)
			fy, _, erry := big.ParseFloat(y.Value, 10, 128, big.ToNearestEven)
			if errx == nil && erry == nil {
				return fx.Cmp(fy)
			}
		}
	case *types.AttributeValueMemberB:
		if y, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(x.Value, y.Value)
		}
	}
	return strings.Compare(keyString(a), keyString(b))
}
