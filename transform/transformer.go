/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"reflect"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MaxiMittel/dynormo/errors"
)

// MaxBatchSize is the largest number of requests in one BatchWriteItem call.
const MaxBatchSize = 25

// Store is the part of the DynamoDB API a transformation needs.
type Store interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// BackupStore is implemented by stores that can back up a table.
type BackupStore interface {
	CreateBackup(ctx context.Context, params *dynamodb.CreateBackupInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateBackupOutput, error)
}

var _ Store = (*dynamodb.Client)(nil)
var _ BackupStore = (*dynamodb.Client)(nil)

// Report summarizes one pass over the table.
type Report struct {
	Scanned     int `json:"scanned"`
	Transformed int `json:"transformed"`
	Removed     int `json:"removed"`
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Transformer) {
		t.logger = logger
	}
}

// WithConcurrency caps the number of batch writes in flight. Zero or less
// sends every batch at once.
func WithConcurrency(n int) Option {
	return func(t *Transformer) {
		t.concurrency = n
	}
}

type compiledStep struct {
	Step
	prg cel.Program
}

type program struct {
	filters []compiledStep
	deletes []compiledStep
	edits   []compiledStep
}

// Transformer applies a plan to the table it names.
type Transformer struct {
	store       Store
	plan        *Plan
	forward     program
	backward    program
	logger      *zap.Logger
	concurrency int
}

// New compiles the expressions of plan. The plan must name its table and
// partition key, directly or through Bind.
func New(store Store, plan *Plan, opts ...Option) (*Transformer, error) {
	if store == nil {
		return nil, errors.NewValidationError("store", "store is required")
	}
	if plan == nil {
		return nil, errors.NewValidationError("plan", "plan is required")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.Table == "" {
		return nil, errors.NewValidationError("table", "plan has no table")
	}
	if plan.PartitionKey == "" {
		return nil, errors.NewValidationError("partitionKey", "plan has no partition key")
	}

	env, err := newEnv()
	if err != nil {
		return nil, err
	}
	t := &Transformer{store: store, plan: plan, logger: zap.NewNop()}
	if t.forward, err = compileSteps(env, plan.Steps); err != nil {
		return nil, err
	}
	if t.backward, err = compileSteps(env, plan.Rollback); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func compileSteps(env *cel.Env, steps []Step) (program, error) {
	var p program
	for i, s := range steps {
		cs := compiledStep{Step: s}
		if s.Expr != "" {
			prg, err := compileExpr(env, s.Expr)
			if err != nil {
				return program{}, fmt.Errorf("step %d: %w", i, err)
			}
			cs.prg = prg
		}
		switch s.Op {
		case OpFilter:
			p.filters = append(p.filters, cs)
		case OpDelete:
			p.deletes = append(p.deletes, cs)
		default:
			p.edits = append(p.edits, cs)
		}
	}
	return p, nil
}

// outcome is the evaluated plan before anything is written.
type outcome struct {
	scanned     int
	transformed []map[string]any
	removed     []map[string]any
	puts        []types.WriteRequest
	deletes     []types.WriteRequest
}

// Run applies the plan and writes the result: deletions first, then the
// rewritten items. Batches are sent concurrently and are not atomic with
// respect to each other.
func (t *Transformer) Run(ctx context.Context) (*Report, error) {
	return t.apply(ctx, t.forward, "transform")
}

// Rollback applies the rollback steps of the plan.
func (t *Transformer) Rollback(ctx context.Context) (*Report, error) {
	if len(t.plan.Rollback) == 0 {
		return nil, errors.NewValidationError("rollback", fmt.Sprintf("plan %s has no rollback steps", t.plan.Name))
	}
	return t.apply(ctx, t.backward, "rollback")
}

// Preview evaluates the plan without writing to the table and stores the
// items it would write and remove as JSON at path.
func (t *Transformer) Preview(ctx context.Context, path string) (*Report, error) {
	out, err := t.evaluate(ctx, t.forward)
	if err != nil {
		return nil, err
	}
	doc := struct {
		TransformedItems []map[string]any `json:"transformedItems"`
		ItemsToRemove    []map[string]any `json:"itemsToRemove"`
	}{out.transformed, out.removed}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write preview %s: %w", path, err)
	}
	return out.report(), nil
}

// Backup creates an on-demand backup of the plan's table.
func (t *Transformer) Backup(ctx context.Context, name string) error {
	bs, ok := t.store.(BackupStore)
	if !ok {
		return errors.NewValidationError("store", "store cannot create backups")
	}
	return Backup(ctx, bs, t.plan.Table, name)
}

// Backup creates an on-demand backup of table.
func Backup(ctx context.Context, store BackupStore, table, name string) error {
	if name == "" {
		return errors.NewValidationError("name", "backup name is required")
	}
	_, err := store.CreateBackup(ctx, &dynamodb.CreateBackupInput{
		TableName:  aws.String(table),
		BackupName: aws.String(name),
	})
	if err != nil {
		return errors.NewOperationError(table, "backup", "an error occurred while trying to back up the table", err)
	}
	return nil
}

func (o *outcome) report() *Report {
	return &Report{Scanned: o.scanned, Transformed: len(o.transformed), Removed: len(o.removed)}
}

func (t *Transformer) apply(ctx context.Context, p program, op string) (*Report, error) {
	out, err := t.evaluate(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := t.write(ctx, op, out.deletes); err != nil {
		return nil, err
	}
	if err := t.write(ctx, op, out.puts); err != nil {
		return nil, err
	}
	report := out.report()
	t.logger.Info("transformation applied",
		zap.String("plan", t.plan.Name),
		zap.String("operation", op),
		zap.String("table", t.plan.Table),
		zap.Int("scanned", report.Scanned),
		zap.Int("transformed", report.Transformed),
		zap.Int("removed", report.Removed))
	return report, nil
}

// evaluate scans the table and runs p over every item. Filters and delete
// predicates see the stored item; edits run in order on a copy. Items the
// edits leave unchanged are not rewritten, and an edit that changes the key
// also deletes the item under its old key.
func (t *Transformer) evaluate(ctx context.Context, p program) (*outcome, error) {
	raws, err := t.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := &outcome{scanned: len(raws), transformed: []map[string]any{}, removed: []map[string]any{}}
	for _, raw := range raws {
		var item map[string]any
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode item %v: %w", t.key(raw), err)
		}

		keep, err := allMatch(p.filters, item)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		remove, err := anyMatch(p.deletes, item)
		if err != nil {
			return nil, err
		}
		if remove {
			out.removed = append(out.removed, item)
			out.deletes = append(out.deletes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: t.key(raw)}})
			continue
		}

		next, err := edit(p.edits, item)
		if err != nil {
			return nil, err
		}
		if reflect.DeepEqual(next, item) {
			continue
		}
		av, err := encode(raw, item, next)
		if err != nil {
			return nil, err
		}
		if _, ok := av[t.plan.PartitionKey]; !ok {
			return nil, errors.NewValidationError(t.plan.PartitionKey, fmt.Sprintf("transformed item %v has no partition key", t.key(raw)))
		}
		if t.plan.SortKey != "" {
			if _, ok := av[t.plan.SortKey]; !ok {
				return nil, errors.NewValidationError(t.plan.SortKey, fmt.Sprintf("transformed item %v has no sort key", t.key(raw)))
			}
		}
		if !reflect.DeepEqual(t.key(av), t.key(raw)) {
			out.deletes = append(out.deletes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: t.key(raw)}})
		}
		out.transformed = append(out.transformed, next)
		out.puts = append(out.puts, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	return out, nil
}

func (t *Transformer) scan(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var start map[string]types.AttributeValue
	for {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(t.plan.Table),
			ExclusiveStartKey: start,
		}
		t.logger.Debug("scanning table", zap.String("table", t.plan.Table), zap.Any("startKey", start))
		out, err := t.store.Scan(ctx, input)
		if err != nil {
			return nil, errors.NewOperationError(t.plan.Table, "scan", "an error occurred while trying to read the table", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (t *Transformer) write(ctx context.Context, op string, requests []types.WriteRequest) error {
	g, gctx := errgroup.WithContext(ctx)
	if t.concurrency > 0 {
		g.SetLimit(t.concurrency)
	}
	for chunk := range slices.Chunk(requests, MaxBatchSize) {
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{t.plan.Table: chunk},
		}
		g.Go(func() error {
			out, err := t.store.BatchWriteItem(gctx, input)
			if err != nil {
				t.logger.Error("batch write failed", zap.String("table", t.plan.Table), zap.String("operation", op), zap.Error(err))
				return errors.NewOperationError(t.plan.Table, op, "an error occurred while trying to write the items", err)
			}
			n := 0
			for _, reqs := range out.UnprocessedItems {
				n += len(reqs)
			}
			if n > 0 {
				return errors.NewPartialBatchError(op, n)
			}
			return nil
		})
	}
	return g.Wait()
}

func (t *Transformer) key(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{}
	if v, ok := item[t.plan.PartitionKey]; ok {
		key[t.plan.PartitionKey] = v
	}
	if t.plan.SortKey != "" {
		if v, ok := item[t.plan.SortKey]; ok {
			key[t.plan.SortKey] = v
		}
	}
	return key
}

func allMatch(steps []compiledStep, item map[string]any) (bool, error) {
	for _, s := range steps {
		ok, err := evalBool(s.prg, item)
		if err != nil {
			return false, fmt.Errorf("filter %q: %w", s.Expr, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func anyMatch(steps []compiledStep, item map[string]any) (bool, error) {
	for _, s := range steps {
		ok, err := evalBool(s.prg, item)
		if err != nil {
			return false, fmt.Errorf("delete %q: %w", s.Expr, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func edit(steps []compiledStep, item map[string]any) (map[string]any, error) {
	next := maps.Clone(item)
	for _, s := range steps {
		switch s.Op {
		case OpSet:
			next[s.Attribute] = s.Value
		case OpRemove:
			delete(next, s.Attribute)
		case OpRename:
			if v, ok := next[s.Attribute]; ok {
				next[s.To] = v
				delete(next, s.Attribute)
			}
		case OpAdd, OpMap:
			v, err := evalValue(s.prg, next)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", s.Op, s.Expr, err)
			}
			if s.Attribute != "" {
				next[s.Attribute] = v
				continue
			}
			m, ok := v.(map[string]any)
			if !ok {
				return nil, errors.NewValidationError("map", fmt.Sprintf("%q returned %T, want a map", s.Expr, v))
			}
			next = m
		}
	}
	return next, nil
}

// encode marshals next, reusing the stored value of every attribute the
// edits left unchanged so that sets and number formatting survive.
func encode(raw map[string]types.AttributeValue, before, next map[string]any) (map[string]types.AttributeValue, error) {
	av := make(map[string]types.AttributeValue, len(next))
	for name, v := range next {
		if old, ok := before[name]; ok && reflect.DeepEqual(old, v) {
			if stored, ok := raw[name]; ok {
				av[name] = stored
				continue
			}
		}
		enc, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode attribute %s: %w", name, err)
		}
		av[name] = enc
	}
	return av, nil
}
