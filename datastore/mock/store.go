/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package mock

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/truora/minidyn/aws-v2/client"

	"github.com/MaxiMittel/dynormo/datastore"
)

// Index declares a global secondary index of a mock table
type Index struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// Store is an in-memory implementation of datastore.Store for testing,
// backed by a minidyn client. It records the calls it receives and lets
// tests inject failures.
type Store struct {
	mu      sync.Mutex
	db      *client.Client
	tables  map[string]keySchema
	backups map[string][][]map[string]types.AttributeValue

	getError      error
	putError      error
	deleteError   error
	updateError   error
	scanError     error
	queryError    error
	batchError    error
	transactError error
	unprocessed   int

	calls         map[string]int
	pageLimits    []int32
	batchSizes    []int
	transactSizes []int
}

var _ datastore.Store = (*Store)(nil)

// New creates an empty mock Store
func New() *Store {
	return &Store{
		db:      client.NewClient(),
		tables:  map[string]keySchema{},
		backups: map[string][][]map[string]types.AttributeValue{},
		calls:   map[string]int{},
	}
}

// WithTable creates a table with string key attributes. It panics when the
// table cannot be created.
func (s *Store) WithTable(name, partitionKey, sortKey string, indexes ...Index) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	throughput := &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(1),
		WriteCapacityUnits: aws.Int64(1),
	}
	attrs := map[string]bool{partitionKey: true}
	if sortKey != "" {
		attrs[sortKey] = true
	}
	input := &dynamodb.CreateTableInput{
		TableName:             aws.String(name),
		KeySchema:             keyElements(partitionKey, sortKey),
		BillingMode:           types.BillingModeProvisioned,
		ProvisionedThroughput: throughput,
	}
	for _, idx := range indexes {
		attrs[idx.PartitionKey] = true
		if idx.SortKey != "" {
			attrs[idx.SortKey] = true
		}
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:             aws.String(idx.Name),
			KeySchema:             keyElements(idx.PartitionKey, idx.SortKey),
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: throughput,
		})
	}
	for _, attr := range slices.Sorted(maps.Keys(attrs)) {
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(attr),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	if _, err := s.db.CreateTable(context.Background(), input); err != nil {
		panic(fmt.Sprintf("mock: create table %s: %v", name, err))
	}
	s.tables[name] = keySchema{partitionKey: partitionKey, sortKey: sortKey}
	return s
}

func keyElements(partitionKey, sortKey string) []types.KeySchemaElement {
	elems := []types.KeySchemaElement{{AttributeName: aws.String(partitionKey), KeyType: types.KeyTypeHash}}
	if sortKey != "" {
		elems = append(elems, types.KeySchemaElement{AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange})
	}
	return elems
}

// WithGetError makes GetItem operations return an error
func (s *Store) WithGetError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getError = err
	return s
}

// WithPutError makes PutItem operations return an error
func (s *Store) WithPutError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putError = err
	return s
}

// WithDeleteError makes DeleteItem operations return an error
func (s *Store) WithDeleteError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteError = err
	return s
}

// WithUpdateError makes UpdateItem operations return an error
func (s *Store) WithUpdateError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateError = err
	return s
}

// WithScanError makes Scan operations return an error
func (s *Store) WithScanError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanError = err
	return s
}

// WithQueryError makes Query operations return an error
func (s *Store) WithQueryError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryError = err
	return s
}

// WithBatchError makes BatchWriteItem operations return an error
func (s *Store) WithBatchError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchError = err
	return s
}

// WithTransactError makes TransactWriteItems operations return an error
func (s *Store) WithTransactError(err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactError = err
	return s
}

// WithUnprocessed makes every BatchWriteItem call leave its last n requests unprocessed
func (s *Store) WithUnprocessed(n int) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unprocessed = n
	return s
}

func validationError(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func (s *Store) table(name *string) (keySchema, error) {
	t, ok := s.tables[aws.ToString(name)]
	if !ok {
		return keySchema{}, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: " + aws.ToString(name))}
	}
	return t, nil
}

// GetItem returns the item with the given primary key
func (s *Store) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["GetItem"]++
	if s.getError != nil {
		return nil, s.getError
	}
	if _, err := s.table(in.TableName); err != nil {
		return nil, err
	}
	return s.db.GetItem(ctx, in)
}

// PutItem stores an item, replacing any item with the same primary key
func (s *Store) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["PutItem"]++
	if s.putError != nil {
		return nil, s.putError
	}
	if _, err := s.table(in.TableName); err != nil {
		return nil, err
	}
	return s.db.PutItem(ctx, in)
}

// DeleteItem removes an item. With ReturnValues ALL_OLD the removed item is returned.
func (s *Store) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["DeleteItem"]++
	if s.deleteError != nil {
		return nil, s.deleteError
	}
	if _, err := s.table(in.TableName); err != nil {
		return nil, err
	}

	var old map[string]types.AttributeValue
	if in.ReturnValues == types.ReturnValueAllOld {
		got, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{TableName: in.TableName, Key: in.Key})
		if err != nil {
			return nil, err
		}
		old = got.Item
	}
	out, err := s.db.DeleteItem(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 && len(old) > 0 {
		out.Attributes = old
	}
	return out, nil
}

// UpdateItem applies an update expression. With ReturnValues ALL_NEW the updated item is returned.
func (s *Store) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["UpdateItem"]++
	if s.updateError != nil {
		return nil, s.updateError
	}
	if _, err := s.table(in.TableName); err != nil {
		return nil, err
	}

	out, err := s.db.UpdateItem(ctx, in)
	if err != nil {
		return nil, err
	}
	if in.ReturnValues == types.ReturnValueAllNew && len(out.Attributes) == 0 {
		got, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{TableName: in.TableName, Key: in.Key})
		if err != nil {
			return nil, err
		}
		out.Attributes = got.Item
	}
	return out, nil
}

// Scan returns a page of the table or index. Limit bounds the number of
// items evaluated before FilterExpression is applied.
func (s *Store) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Scan"]++
	s.pageLimits = append(s.pageLimits, aws.ToInt32(in.Limit))
	if s.scanError != nil {
		return nil, s.scanError
	}
	t, err := s.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.Limit == nil || aws.ToString(in.FilterExpression) == "" {
		return s.db.Scan(ctx, in)
	}

	keys := *in
	keys.FilterExpression, keys.ProjectionExpression = nil, nil
	keys.ExpressionAttributeNames, keys.ExpressionAttributeValues = nil, nil
	evaluated, err := s.db.Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}

	all := *in
	all.Limit = nil
	all.ProjectionExpression, all.ExpressionAttributeNames = withKeys(t, in.ProjectionExpression, in.ExpressionAttributeNames)
	matched, err := s.db.Scan(ctx, &all)
	if err != nil {
		return nil, err
	}

	items := t.within(matched.Items, evaluated.Items, in.ProjectionExpression, in.ExpressionAttributeNames)
	return &dynamodb.ScanOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(len(evaluated.Items)),
		LastEvaluatedKey: evaluated.LastEvaluatedKey,
	}, nil
}

// Query returns a page of the items matching KeyConditionExpression.
// Limit bounds the number of items evaluated before FilterExpression is applied.
func (s *Store) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Query"]++
	s.pageLimits = append(s.pageLimits, aws.ToInt32(in.Limit))
	if s.queryError != nil {
		return nil, s.queryError
	}
	t, err := s.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.KeyConditionExpression == nil {
		return nil, validationError("either the KeyConditions or KeyConditionExpression parameter must be specified")
	}
	if in.Limit == nil || aws.ToString(in.FilterExpression) == "" {
		return s.db.Query(ctx, in)
	}

	keys := *in
	keys.FilterExpression, keys.ProjectionExpression = nil, nil
	keys.ExpressionAttributeNames, keys.ExpressionAttributeValues = referenced(*in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	evaluated, err := s.db.Query(ctx, &keys)
	if err != nil {
		return nil, err
	}

	all := *in
	all.Limit = nil
	all.ProjectionExpression, all.ExpressionAttributeNames = withKeys(t, in.ProjectionExpression, in.ExpressionAttributeNames)
	matched, err := s.db.Query(ctx, &all)
	if err != nil {
		return nil, err
	}

	items := t.within(matched.Items, evaluated.Items, in.ProjectionExpression, in.ExpressionAttributeNames)
	return &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(len(evaluated.Items)),
		LastEvaluatedKey: evaluated.LastEvaluatedKey,
	}, nil
}

// BatchWriteItem applies up to 25 put and delete requests
func (s *Store) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["BatchWriteItem"]++

	total := 0
	for _, reqs := range in.RequestItems {
		total += len(reqs)
	}
	s.batchSizes = append(s.batchSizes, total)
	if s.batchError != nil {
		return nil, s.batchError
	}
	if total == 0 || total > 25 {
		return nil, validationError("too many items requested for the BatchWriteItem call: %d", total)
	}

	skip := max(total-s.unprocessed, 0)
	applied := map[string][]types.WriteRequest{}
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	n := 0
	for _, name := range slices.Sorted(maps.Keys(in.RequestItems)) {
		if _, err := s.table(aws.String(name)); err != nil {
			return nil, err
		}
		for _, req := range in.RequestItems[name] {
			n++
			if n > skip {
				out.UnprocessedItems[name] = append(out.UnprocessedItems[name], req)
				continue
			}
			applied[name] = append(applied[name], req)
		}
	}
	if len(applied) == 0 {
		return out, nil
	}

	res, err := s.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: applied})
	if err != nil {
		return nil, err
	}
	for name, reqs := range res.UnprocessedItems {
		out.UnprocessedItems[name] = append(out.UnprocessedItems[name], reqs...)
	}
	return out, nil
}

// TransactWriteItems applies up to 100 writes atomically
func (s *Store) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["TransactWriteItems"]++
	s.transactSizes = append(s.transactSizes, len(in.TransactItems))
	if s.transactError != nil {
		return nil, s.transactError
	}
	if len(in.TransactItems) == 0 || len(in.TransactItems) > 100 {
		return nil, validationError("member must have length between 1 and 100: %d", len(in.TransactItems))
	}
	for _, item := range in.TransactItems {
		if _, err := s.table(transactTable(item)); err != nil {
			return nil, err
		}
	}
	return s.db.TransactWriteItems(ctx, in)
}

func transactTable(item types.TransactWriteItem) *string {
	switch {
	case item.Put != nil:
		return item.Put.TableName
	case item.Update != nil:
		return item.Update.TableName
	case item.Delete != nil:
		return item.Delete.TableName
	case item.ConditionCheck != nil:
		return item.ConditionCheck.TableName
	}
	return nil
}

// CreateBackup snapshots a table
func (s *Store) CreateBackup(ctx context.Context, in *dynamodb.CreateBackupInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateBackupOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateBackup"]++

	t, err := s.table(in.TableName)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, aws.ToString(in.TableName), t)
	if err != nil {
		return nil, err
	}
	name := aws.ToString(in.TableName)
	s.backups[name] = append(s.backups[name], items)

	return &dynamodb.CreateBackupOutput{
		BackupDetails: &types.BackupDetails{
			BackupArn:    aws.String(fmt.Sprintf("arn:aws:dynamodb:local:000000000000:table/%s/backup/%d", name, len(s.backups[name]))),
			BackupName:   in.BackupName,
			BackupStatus: types.BackupStatusAvailable,
		},
	}, nil
}

// items scans a whole table and returns it in primary key order.
func (s *Store) items(ctx context.Context, name string, t keySchema) ([]map[string]types.AttributeValue, error) {
	var all []map[string]types.AttributeValue
	in := &dynamodb.ScanInput{TableName: aws.String(name)}
	for {
		out, err := s.db.Scan(ctx, in)
		if err != nil {
			return nil, err
		}
		all = append(all, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	slices.SortFunc(all, t.compare)
	return all, nil
}

// Helper methods for testing

// Items returns the stored items of a table in primary key order
func (s *Store) Items(tableName string) []map[string]types.AttributeValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil
	}
	items, err := s.items(context.Background(), tableName, t)
	if err != nil {
		panic(fmt.Sprintf("mock: scan table %s: %v", tableName, err))
	}
	return items
}

// Count returns the number of items stored in a table
func (s *Store) Count(tableName string) int {
	return len(s.Items(tableName))
}

// Backups returns the number of backups taken of a table
func (s *Store) Backups(tableName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backups[tableName])
}

// Calls returns how often an operation was invoked, e.g. Calls("Scan")
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// PageLimits returns the Limit of every Scan and Query call in call order (0 when unset)
func (s *Store) PageLimits() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pageLimits)
}

// BatchSizes returns the request count of every BatchWriteItem call
func (s *Store) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.batchSizes)
}

// TransactSizes returns the item count of every TransactWriteItems call
func (s *Store) TransactSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transactSizes)
}

// Reset clears recorded calls and injected errors, keeping tables and items
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getError, s.putError, s.deleteError, s.updateError = nil, nil, nil, nil
	s.scanError, s.queryError, s.batchError, s.transactError = nil, nil, nil, nil
	s.unprocessed = 0
	s.calls = map[string]int{}
	s.pageLimits, s.batchSizes, s.transactSizes = nil, nil, nil
}
