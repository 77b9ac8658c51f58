/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"

	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
)

// raw passes an already encoded value through the expression builder.
type raw struct{ av types.AttributeValue }

func (r raw) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return r.av, nil
}

// prepare fills in static values, generated values, defaults, explicit nulls
// and empty collections, producing the full record written by Create.
func (e *Entity) prepare(attrs schema.Attributes, in schema.Item) (schema.Item, error) {
	out := make(schema.Item, len(attrs))
	for _, na := range attrs {
		attr := na.Attribute
		v, present := in[na.Name]

		switch {
		case attr.IsStatic():
			v, present = attr.StaticValue, true
		case v == nil && attr.Generator != "":
			generated, err := e.gen.Generate(attr.Generator)
			if err != nil {
				return nil, err
			}
			v, present = generated, true
		case v == nil && attr.DefaultValue != nil:
			v, present = attr.DefaultValue, true
		case v == nil && attr.Nullable:
			v, present = nil, true
		case v == nil && attr.Type.IsCollection():
			v, present = []any{}, true
		case v == nil && attr.Type == schema.TypeMap:
			v, present = schema.Item{}, true
		}

		if attr.Type == schema.TypeMap && len(attr.Properties) > 0 && v != nil {
			m, err := asItem(v)
			if err != nil {
				return nil, errors.NewValidationError(na.Name, err.Error())
			}
			if v, err = e.prepare(attr.Properties, m); err != nil {
				return nil, err
			}
		}
		if attr.Type == schema.TypeMapList && len(attr.Properties) > 0 && v != nil {
			elems, err := elements(v)
			if err != nil {
				return nil, errors.NewValidationError(na.Name, err.Error())
			}
			list := make([]any, len(elems))
			for i, el := range elems {
				m, err := asItem(el)
				if err != nil {
					return nil, errors.NewValidationError(na.Name, err.Error())
				}
				if list[i], err = e.prepare(attr.Properties, m); err != nil {
					return nil, err
				}
			}
			v = list
		}

		if present {
			out[na.Name] = v
		}
	}
	return out, nil
}

// encode converts an item into its stored representation. Attributes that
// are not part of the schema are dropped.
func encode(attrs schema.Attributes, item schema.Item) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for _, na := range attrs {
		v, ok := item[na.Name]
		if !ok {
			continue
		}
		av, err := encodeValue(na.Name, na.Attribute, v)
		if err != nil {
			return nil, err
		}
		if av != nil {
			out[na.Name] = av
		}
	}
	return out, nil
}

// encodeValue returns nil when the value is not stored: absent non-nullable
// values and empty sets.
func encodeValue(name string, attr *schema.Attribute, v any) (types.AttributeValue, error) {
	if isNil(v) {
		if attr.Nullable {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return nil, nil
	}
	invalid := func(err error) error {
		return errors.NewValidationError(name, err.Error())
	}

	switch attr.Type {
	case schema.TypeDate:
		s, err := schema.FormatDate(v)
		if err != nil {
			return nil, invalid(err)
		}
		return &types.AttributeValueMemberS{Value: s}, nil

	case schema.TypeDateList:
		elems, err := elements(v)
		if err != nil {
			return nil, invalid(err)
		}
		list := make([]types.AttributeValue, len(elems))
		for i, el := range elems {
			s, err := schema.FormatDate(el)
			if err != nil {
				return nil, invalid(err)
			}
			list[i] = &types.AttributeValueMemberS{Value: s}
		}
		return &types.AttributeValueMemberL{Value: list}, nil

	case schema.TypeStringSet, schema.TypeNumberSet:
		elems, err := elements(v)
		if err != nil {
			return nil, invalid(err)
		}
		if len(elems) == 0 {
			return nil, nil
		}
		values := make([]string, len(elems))
		for i, el := range elems {
			av, err := attributevalue.Marshal(el)
			if err != nil {
				return nil, invalid(err)
			}
			switch m := av.(type) {
			case *types.AttributeValueMemberS:
				if attr.Type != schema.TypeStringSet {
					return nil, invalid(fmt.Errorf("set element %v is not a number", el))
				}
				values[i] = m.Value
			case *types.AttributeValueMemberN:
				if attr.Type != schema.TypeNumberSet {
					return nil, invalid(fmt.Errorf("set element %v is not a string", el))
				}
				values[i] = m.Value
			default:
				return nil, invalid(fmt.Errorf("unsupported set element %T", el))
			}
		}
		if attr.Type == schema.TypeStringSet {
			return &types.AttributeValueMemberSS{Value: values}, nil
		}
		return &types.AttributeValueMemberNS{Value: values}, nil

	case schema.TypeMap:
		if len(attr.Properties) == 0 {
			break
		}
		m, err := asItem(v)
		if err != nil {
			return nil, invalid(err)
		}
		nested, err := encode(attr.Properties, m)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: nested}, nil

	case schema.TypeMapList:
		if len(attr.Properties) == 0 {
			break
		}
		elems, err := elements(v)
		if err != nil {
			return nil, invalid(err)
		}
		list := make([]types.AttributeValue, len(elems))
		for i, el := range elems {
			m, err := asItem(el)
			if err != nil {
				return nil, invalid(err)
			}
			nested, err := encode(attr.Properties, m)
			if err != nil {
				return nil, err
			}
			list[i] = &types.AttributeValueMemberM{Value: nested}
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	}

	if attr.Type.IsList() {
		if elems, err := elements(v); err == nil && len(elems) == 0 {
			return &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, nil
		}
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, invalid(err)
	}
	return av, nil
}

// decode converts a stored item into a schema.Item.
func decode(attrs schema.Attributes, item map[string]types.AttributeValue) (schema.Item, error) {
	out := make(schema.Item, len(attrs))
	for _, na := range attrs {
		av, ok := item[na.Name]
		v, keep, err := decodeValue(na.Attribute, av, ok)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attribute %s: %w", na.Name, err)
		}
		if keep {
			out[na.Name] = v
		}
	}
	return out, nil
}

func decodeValue(attr *schema.Attribute, av types.AttributeValue, present bool) (any, bool, error) {
	if _, null := av.(*types.AttributeValueMemberNULL); present && null {
		present = false
	}
	if !present {
		switch {
		case attr.Type.IsCollection():
			v, err := emptyCollection(attr.Type)
			return v, true, err
		case attr.Nullable:
			return nil, true, nil
		case attr.Type == schema.TypeMap:
			v, err := decode(attr.Properties, nil)
			return v, true, err
		}
		return nil, false, nil
	}

	switch attr.Type {
	case schema.TypeNumber:
		var f float64
		err := attributevalue.Unmarshal(av, &f)
		return f, true, err

	case schema.TypeDate:
		var s string
		if err := attributevalue.Unmarshal(av, &s); err != nil {
			return nil, false, err
		}
		d, err := schema.ParseDate(s)
		return d, true, err

	case schema.TypeMap:
		if len(attr.Properties) == 0 {
			var m map[string]any
			err := attributevalue.Unmarshal(av, &m)
			return schema.Item(m), true, err
		}
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false, fmt.Errorf("expected a map, got %T", av)
		}
		v, err := decode(attr.Properties, m.Value)
		return v, true, err

	case schema.TypeList:
		out := []any{}
		err := attributevalue.Unmarshal(av, &out)
		return out, true, err

	case schema.TypeStringList, schema.TypeStringSet:
		out := []string{}
		err := attributevalue.Unmarshal(av, &out)
		return out, true, err

	case schema.TypeNumberList, schema.TypeNumberSet:
		out := []float64{}
		err := attributevalue.Unmarshal(av, &out)
		return out, true, err

	case schema.TypeBooleanList:
		out := []bool{}
		err := attributevalue.Unmarshal(av, &out)
		return out, true, err

	case schema.TypeDateList:
		var raw []string
		if err := attributevalue.Unmarshal(av, &raw); err != nil {
			return nil, false, err
		}
		out := make([]strfmt.DateTime, len(raw))
		for i, s := range raw {
			d, err := schema.ParseDate(s)
			if err != nil {
				return nil, false, err
			}
			out[i] = d
		}
		return out, true, nil

	case schema.TypeMapList:
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok {
			return nil, false, fmt.Errorf("expected a list, got %T", av)
		}
		out := make([]schema.Item, len(l.Value))
		for i, el := range l.Value {
			m, ok := el.(*types.AttributeValueMemberM)
			if !ok {
				return nil, false, fmt.Errorf("expected a map element, got %T", el)
			}
			if len(attr.Properties) == 0 {
				var generic map[string]any
				if err := attributevalue.UnmarshalMap(m.Value, &generic); err != nil {
					return nil, false, err
				}
				out[i] = generic
				continue
			}
			v, err := decode(attr.Properties, m.Value)
			if err != nil {
				return nil, false, err
			}
			out[i] = v
		}
		return out, true, nil
	}

	var v any
	err := attributevalue.Unmarshal(av, &v)
	return v, true, err
}

func emptyCollection(t schema.AttributeType) (any, error) {
	switch t {
	case schema.TypeList:
		return []any{}, nil
	case schema.TypeStringList, schema.TypeStringSet:
		return []string{}, nil
	case schema.TypeNumberList, schema.TypeNumberSet:
		return []float64{}, nil
	case schema.TypeBooleanList:
		return []bool{}, nil
	case schema.TypeDateList:
		return []strfmt.DateTime{}, nil
	case schema.TypeMapList:
		return []schema.Item{}, nil
	}
	return nil, fmt.Errorf("%s is not a collection type", t)
}

// encodeKey builds the stored primary key for k.
func (e *Entity) encodeKey(k schema.Key) (map[string]types.AttributeValue, error) {
	key, err := e.schema.ResolveKey(k)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.AttributeValue, len(key))
	for name, v := range key {
		attr, _ := e.schema.Attributes.Get(name)
		av, err := encodeValue(name, attr, v)
		if err != nil {
			return nil, err
		}
		if av == nil {
			return nil, errors.NewValidationError(name, "key value is required")
		}
		out[name] = av
	}
	return out, nil
}

// keyOf extracts the primary key attributes from a stored item.
func (e *Entity) keyOf(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	pk, _ := e.schema.PartitionKey()
	out := map[string]types.AttributeValue{pk: item[pk]}
	if sk, _ := e.schema.SortKey(); sk != "" {
		out[sk] = item[sk]
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func elements(v any) ([]any, error) {
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func asItem(v any) (schema.Item, error) {
	switch m := v.(type) {
	case schema.Item:
		return m, nil
	case map[string]any:
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("expected a map, got %T", v)
	}
	out := make(schema.Item, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

// describe renders a key for log messages.
func describe(key map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(key))
	for name, av := range key {
		var v any
		_ = attributevalue.Unmarshal(av, &v)
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	return strings.Join(parts, ",")
}
