/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package processor

const header = `// Code generated by dynormo. DO NOT EDIT.

package {{ .Package }}
{{ if .Imports }}
import (
{{- range .Imports }}
	{{ . }}
{{- end }}
)
{{ end }}`

const entityTemplate = header + `
{{ range .Structs }}
{{ if .Doc }}// {{ .Doc }}{{ end }}
type {{ .Name }} struct {
{{- range .Fields }}
	{{ .Name }} {{ .Type }} ` + "`" + `json:"{{ .Tag }}"` + "`" + `
{{- end }}
}
{{ end }}
// {{ .Entity }}EntityName is the registered name of {{ .Entity }}.
const {{ .Entity }}EntityName = {{ printf "%q" .EntityName }}

// {{ .Entity }}Table is the default table of {{ .Entity }}.
const {{ .Entity }}Table = {{ printf "%q" .Table }}

const {{ .SchemaVar }} = {{ goString .SchemaJSON }}

func init() {
	entity, err := schema.Parse([]byte({{ .SchemaVar }}))
	if err != nil {
		panic(fmt.Sprintf("dynormo: invalid schema {{ .EntityName }}: %v", err))
	}
	registry.MustRegisterSchema(entity)
}
`

const clientTemplate = header + `
// Client exposes a typed accessor per generated entity.
type Client struct {
	*dynormo.Client
}

// NewClient creates a Client over store.
func NewClient(store datastore.Store, opts ...dynormo.Option) (*Client, error) {
	c, err := dynormo.New(store, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}

// NewClientFromConfig creates a Client connected as described by cfg.
func NewClientFromConfig(ctx context.Context, cfg *config.Config, opts ...dynormo.Option) (*Client, error) {
	c, err := dynormo.NewFromConfig(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}
{{ range .Entities }}
// {{ .Entity }} returns the accessor of the {{ .EntityName }} entity.
func (c *Client) {{ .Entity }}() (*dynormo.Typed[{{ .Entity }}], error) {
	return dynormo.TypedEntity[{{ .Entity }}](c.Client, {{ .Entity }}EntityName)
}
{{ end }}`
