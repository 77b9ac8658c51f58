/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"go.uber.org/zap"

	"github.com/MaxiMittel/dynormo/config"
	"github.com/MaxiMittel/dynormo/errors"
	"github.com/MaxiMittel/dynormo/schema"
)

// ClientFile is the name of the generated client file.
const ClientFile = "client_gen.go"

const modulePath = "github.com/MaxiMittel/dynormo"

// Options configures a Generator.
type Options struct {
	// Package is the package clause of the generated files.
	Package string

	// Tables overrides the table of an entity, keyed by entity name.
	Tables map[string]string
}

// Generator renders Go declarations for entity schemas.
type Generator struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Generator. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) (*Generator, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, errors.NewValidationError("package", fmt.Sprintf("%q is not a valid package name", opts.Package))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{opts: opts, logger: logger}, nil
}

var entityTmpl = template.Must(template.New("entity").Funcs(template.FuncMap{
	"goString": goString,
}).Parse(entityTemplate))

var clientTmpl = template.Must(template.New("client").Parse(clientTemplate))

type fieldData struct {
	Name string
	Type string
	Tag  string
}

type structData struct {
	Name   string
	Doc    string
	Fields []fieldData
}

type entityData struct {
	Package    string
	Imports    []string
	Entity     string
	EntityName string
	Table      string
	SchemaVar  string
	SchemaJSON string
	Structs    []structData
}

type clientData struct {
	Package  string
	Imports  []string
	Entities []entityData
}

// Generate renders one file per entity plus the client file, keyed by file
// name. Entities are emitted in name order.
func (g *Generator) Generate(entities []*schema.Entity) (map[string][]byte, error) {
	if len(entities) == 0 {
		return nil, errors.NewValidationError("entities", "at least one entity is required")
	}
	sorted := make([]*schema.Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	files := make(map[string][]byte, len(sorted)+1)
	declared := map[string]string{}
	datas := make([]entityData, 0, len(sorted))
	for _, entity := range sorted {
		if err := entity.Validate(); err != nil {
			return nil, fmt.Errorf("entity %s: %w", entity.Name, err)
		}
		data, err := g.entityData(entity)
		if err != nil {
			return nil, err
		}
		names := []string{data.Entity + "EntityName", data.Entity + "Table"}
		for _, st := range data.Structs {
			names = append(names, st.Name)
		}
		for _, name := range names {
			if prev, ok := declared[name]; ok {
				return nil, errors.NewValidationError("entities",
					fmt.Sprintf("entities %s and %s both declare %s", prev, entity.Name, name))
			}
			declared[name] = entity.Name
		}

		src, err := render(entityTmpl, data)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", entity.Name, err)
		}
		name := fileName(entity.Name)
		if name == ClientFile {
			return nil, errors.NewValidationError("entities", fmt.Sprintf("entity %s collides with %s", entity.Name, ClientFile))
		}
		files[name] = src
		datas = append(datas, data)
		g.logger.Debug("generated entity", zap.String("entity", entity.Name), zap.String("file", name))
	}

	src, err := render(clientTmpl, clientData{
		Package: g.opts.Package,
		Imports: []string{
			strconv.Quote("context"),
			"",
			strconv.Quote(modulePath),
			strconv.Quote(modulePath + "/config"),
			strconv.Quote(modulePath + "/datastore"),
		},
		Entities: datas,
	})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	files[ClientFile] = src
	return files, nil
}

func (g *Generator) entityData(entity *schema.Entity) (entityData, error) {
	typeName := exported(entity.Name)
	if typeName == "" {
		return entityData{}, errors.NewValidationError("name", fmt.Sprintf("entity name %q has no identifier characters", entity.Name))
	}

	out := *entity
	if table, ok := g.opts.Tables[entity.Name]; ok {
		out.Table = table
	}
	if out.Table == "" {
		out.Table = entity.Name
	}
	raw, err := json.Marshal(&out)
	if err != nil {
		return entityData{}, fmt.Errorf("failed to encode schema %s: %w", entity.Name, err)
	}

	b := &structBuilder{}
	if err := b.build(typeName, fmt.Sprintf("%s is an item of the %s entity.", typeName, entity.Name), entity.Attributes); err != nil {
		return entityData{}, fmt.Errorf("entity %s: %w", entity.Name, err)
	}

	imports := []string{strconv.Quote("fmt"), ""}
	if b.dates {
		imports = append(imports, strconv.Quote("github.com/go-openapi/strfmt"), "")
	}
	imports = append(imports, strconv.Quote(modulePath+"/registry"), strconv.Quote(modulePath+"/schema"))

	return entityData{
		Package:    g.opts.Package,
		Imports:    imports,
		Entity:     typeName,
		EntityName: entity.Name,
		Table:      out.Table,
		SchemaVar:  unexported(typeName) + "Schema",
		SchemaJSON: string(raw),
		Structs:    b.structs,
	}, nil
}

// structBuilder collects the struct declarations of one entity, nested map
// attributes first.
type structBuilder struct {
	structs []structData
	dates   bool
}

func (b *structBuilder) build(name, doc string, attrs schema.Attributes) error {
	fields := make([]fieldData, 0, len(attrs))
	seen := map[string]string{}
	for _, na := range attrs {
		fieldName := exported(na.Name)
		if fieldName == "" {
			return fmt.Errorf("attribute %q has no identifier characters", na.Name)
		}
		if prev, ok := seen[fieldName]; ok {
			return fmt.Errorf("attributes %s and %s map to the same field %s", prev, na.Name, fieldName)
		}
		seen[fieldName] = na.Name

		typ, err := b.fieldType(name+fieldName, na.Attribute)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", na.Name, err)
		}
		tag := na.Name
		if omitted(na.Attribute) {
			tag += ",omitempty"
		}
		fields = append(fields, fieldData{Name: fieldName, Type: typ, Tag: tag})
	}
	b.structs = append(b.structs, structData{Name: name, Doc: doc, Fields: fields})
	return nil
}

// fieldType maps an attribute to a Go type. Attributes whose zero value is
// a legal stored value get a pointer when they may be left for the driver
// to fill or may be null.
func (b *structBuilder) fieldType(nested string, attr *schema.Attribute) (string, error) {
	var base string
	switch attr.Type {
	case schema.TypeString:
		base = "string"
	case schema.TypeNumber:
		base = "float64"
	case schema.TypeBoolean:
		base = "bool"
	case schema.TypeDate:
		b.dates = true
		base = "strfmt.DateTime"
	case schema.TypeMap:
		if len(attr.Properties) == 0 {
			return "map[string]any", nil
		}
		if err := b.build(nested, "", attr.Properties); err != nil {
			return "", err
		}
		return "*" + nested, nil
	case schema.TypeList:
		return "[]any", nil
	case schema.TypeStringList, schema.TypeStringSet:
		return "[]string", nil
	case schema.TypeNumberList, schema.TypeNumberSet:
		return "[]float64", nil
	case schema.TypeBooleanList:
		return "[]bool", nil
	case schema.TypeDateList:
		b.dates = true
		return "[]strfmt.DateTime", nil
	case schema.TypeMapList:
		if len(attr.Properties) == 0 {
			return "[]map[string]any", nil
		}
		if err := b.build(nested, "", attr.Properties); err != nil {
			return "", err
		}
		return "[]" + nested, nil
	default:
		return "", fmt.Errorf("unsupported type %q", attr.Type)
	}

	if attr.Nullable || attr.Type == schema.TypeDate {
		return "*" + base, nil
	}
	if optional(attr) && attr.Type != schema.TypeString {
		return "*" + base, nil
	}
	return base, nil
}

// optional reports whether the driver may fill the attribute on create.
func optional(attr *schema.Attribute) bool {
	return attr.Generator != "" || attr.DefaultValue != nil || attr.IsStatic()
}

// omitted reports whether the field must be left out of the encoded item
// when unset, so that the driver applies generators and defaults.
func omitted(attr *schema.Attribute) bool {
	if attr.Type.IsCollection() {
		return false
	}
	if attr.Type == schema.TypeMap {
		return !attr.Nullable
	}
	if attr.Nullable {
		return optional(attr)
	}
	return optional(attr) || attr.Type == schema.TypeDate
}

func render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("formatting generated code: %w", err)
	}
	return formatted, nil
}

// Write stores files under dir, creating it when missing, and returns the
// written paths in name order.
func Write(dir string, files map[string][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func goString(s string) string {
	if strings.ContainsRune(s, '`') {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}

// exported turns an attribute or entity name into an exported identifier:
// UserId stays UserId, created_at becomes CreatedAt.
func exported(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if sb.Len() == 0 && unicode.IsDigit(r) {
			sb.WriteByte('X')
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func unexported(name string) string {
	r := []rune(name)
	i := 0
	for i < len(r) && unicode.IsUpper(r[i]) {
		i++
	}
	switch {
	case i == 0:
	case i == 1 || i == len(r):
		for j := 0; j < i; j++ {
			r[j] = unicode.ToLower(r[j])
		}
	default:
		// Keep the last capital of an acronym: HTTPServer becomes httpServer.
		for j := 0; j < i-1; j++ {
			r[j] = unicode.ToLower(r[j])
		}
	}
	return string(r)
}

// fileName derives a snake_case file name from an entity name.
func fileName(name string) string {
	var sb strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevLower = true
		default:
			if sb.Len() > 0 && prevLower {
				sb.WriteByte('_')
			}
			prevLower = false
		}
	}
	return sb.String() + ".go"
}

// Run loads the entity definitions named by cfg, generates their
// declarations and writes them to the configured output directory.
func Run(cfg *config.Config, logger *zap.Logger) ([]string, error) {
	if cfg == nil {
		return nil, errors.NewValidationError("config", "config is required")
	}
	entities := make([]*schema.Entity, 0, len(cfg.Entities))
	for _, path := range cfg.EntityPaths() {
		entity, err := schema.LoadFile(path)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	g, err := New(Options{Package: cfg.Package, Tables: cfg.Tables}, logger)
	if err != nil {
		return nil, err
	}
	files, err := g.Generate(entities)
	if err != nil {
		return nil, err
	}
	paths, err := Write(cfg.OutputDir(), files)
	if err != nil {
		return nil, err
	}
	g.logger.Info("generated entities",
		zap.Int("entities", len(entities)),
		zap.String("output", cfg.OutputDir()))
	return paths, nil
}
