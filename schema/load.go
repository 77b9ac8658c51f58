/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse reads an entity definition in JSON or YAML and validates it.
func Parse(data []byte) (*Entity, error) {
	var e Entity
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, fmt.Errorf("failed to parse entity definition: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &e); err != nil {
			return nil, fmt.Errorf("failed to parse entity definition: %w", err)
		}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadFile reads and validates the entity definition stored at path.
func LoadFile(path string) (*Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity definition %s: %w", path, err)
	}
	e, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// UnmarshalJSON decodes a JSON object into attributes, keeping key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes must be an object")
	}

	out := Attributes{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected attribute name token %v", tok)
		}
		attr := &Attribute{}
		if err := dec.Decode(attr); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		out = append(out, NamedAttribute{Name: name, Attribute: attr})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = out
	return nil
}

// MarshalJSON encodes attributes as an object in definition order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, na := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(na.Name)
		if err != nil {
			return nil, err
		}
		attr, err := json.Marshal(na.Attribute)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(attr)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping into attributes, keeping key order.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}
	out := make(Attributes, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		attr := &Attribute{}
		if err := node.Content[i+1].Decode(attr); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		out = append(out, NamedAttribute{Name: name, Attribute: attr})
	}
	*a = out
	return nil
}
