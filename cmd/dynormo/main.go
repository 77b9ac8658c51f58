/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MaxiMittel/dynormo"
	"github.com/MaxiMittel/dynormo/config"
	"github.com/MaxiMittel/dynormo/datastore/ddb"
	"github.com/MaxiMittel/dynormo/logging"
	"github.com/MaxiMittel/dynormo/processor"
	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/transform"
)

const usage = `Usage: dynormo <command> [flags]

Commands:
  generate                 generate Go declarations from the entity definitions
  init                     create a config file and an example entity
  create <name>            scaffold a transformation plan
  run <plan>               apply a transformation plan
  rollback <plan>          apply the rollback steps of a plan
  preview-transformation <plan>
                           write the result of a plan to a file without applying it
  version                  print version information
`

// newStore connects to the table store described by cfg.
var newStore = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (transform.Store, error) {
	client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
	}, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dynormo:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return stderrors.New("no command given")
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "generate":
		return runGenerate(args, stdout)
	case "init":
		return runInit(args, stdout)
	case "create":
		return runCreate(args, stdout)
	case "run", "rollback", "preview-transformation":
		return runPlan(ctx, cmd, args, stdout)
	case "version", "-v", "--version":
		info := dynormo.GetVersionInfo()
		fmt.Fprintf(stdout, "dynormo version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runGenerate(args []string, stdout io.Writer) error {
	fset := flag.NewFlagSet("generate", flag.ContinueOnError)
	configPath := fset.String("config", "", "config file (default: dynormo.yaml or dynormo.config.json)")
	fset.StringVar(configPath, "c", "", "config file (shorthand)")
	if err := fset.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	paths, err := processor.Run(cfg, logger)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, "wrote", p)
	}
	return nil
}

const initConfig = `entities:
  - entities/example.json
# tables:
#   Example: example-table
# region: eu-central-1
# endpoint: http://localhost:8000
logger: [log, warn, error]
output: dynormo
transformations: transformations
`

const initEntity = `{
  "name": "Example",
  "table": "examples",
  "attributes": {
    "Id": { "type": "string", "partitionKey": true, "generator": "uuid" },
    "Name": { "type": "string" },
    "Tags": { "type": "set<string>" },
    "CreatedAt": { "type": "date", "generator": "now" }
  }
}
`

func runInit(args []string, stdout io.Writer) error {
	fset := flag.NewFlagSet("init", flag.ContinueOnError)
	dir := fset.String("dir", ".", "project directory")
	if err := fset.Parse(args); err != nil {
		return err
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(*dir, "dynormo.yaml"), initConfig},
		{filepath.Join(*dir, "entities", "example.json"), initEntity},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			return fmt.Errorf("%s already exists", f.path)
		}
	}
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "wrote", f.path)
	}
	return nil
}

func runCreate(args []string, stdout io.Writer) error {
	fset := flag.NewFlagSet("create", flag.ContinueOnError)
	configPath := fset.String("config", "", "config file")
	entity := fset.String("entity", "", "entity the plan works on")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		return stderrors.New("usage: dynormo create [-config file] [-entity name] <name>")
	}
	name := fset.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	doc, err := transform.Scaffold(name, *entity)
	if err != nil {
		return err
	}
	dir := cfg.TransformationsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, time.Now().UTC().Format("20060102150405")+"_"+name+".yaml")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "wrote", path)
	return nil
}

func runPlan(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	fset := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := fset.String("config", "", "config file")
	backup := fset.String("backup", "", "back up the table under this name first")
	out := fset.String("out", "preview.json", "preview output file")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		return fmt.Errorf("usage: dynormo %s [flags] <plan>", cmd)
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	plan, err := loadPlan(cfg, fset.Arg(0))
	if err != nil {
		return err
	}
	if plan.Entity != "" {
		entity, err := findEntity(cfg, plan.Entity)
		if err != nil {
			return err
		}
		if err := plan.Bind(entity, cfg.Tables[entity.Name]); err != nil {
			return err
		}
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	t, err := transform.New(store, plan, transform.WithLogger(logger))
	if err != nil {
		return err
	}
	if *backup != "" && cmd != "preview-transformation" {
		if err := t.Backup(ctx, *backup); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "backed up %s as %s\n", plan.Table, *backup)
	}

	var report *transform.Report
	switch cmd {
	case "run":
		report, err = t.Run(ctx)
	case "rollback":
		report, err = t.Rollback(ctx)
	default:
		report, err = t.Preview(ctx, *out)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Transformed %d items\n", report.Transformed)
	fmt.Fprintf(stdout, "Removed %d items\n", report.Removed)
	if cmd == "preview-transformation" {
		fmt.Fprintln(stdout, "wrote", *out)
	}
	return nil
}

// loadPlan reads path, falling back to the transformations directory and
// to a .yaml extension.
func loadPlan(cfg *config.Config, path string) (*transform.Plan, error) {
	dir := cfg.TransformationsDir()
	candidates := []string{path, filepath.Join(dir, path)}
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		candidates = append(candidates, path+".yaml", filepath.Join(dir, path+".yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return transform.LoadPlan(c)
		}
	}
	return nil, fmt.Errorf("transformation plan %s: %w", path, fs.ErrNotExist)
}

func findEntity(cfg *config.Config, name string) (*schema.Entity, error) {
	for _, path := range cfg.EntityPaths() {
		entity, err := schema.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if entity.Name == name {
			return entity, nil
		}
	}
	return nil, fmt.Errorf("entity %s is not defined in the config", name)
}
