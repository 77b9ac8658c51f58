/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package transform

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxiMittel/dynormo/datastore/mock"
	"github.com/MaxiMittel/dynormo/datastore/testmodels"
	"github.com/MaxiMittel/dynormo/errors"
)

const ordersPlan = `
name: split-status
table: orders
partitionKey: Id
steps:
  - op: filter
    expr: item.Status == 'open'
  - op: delete
    expr: item.Total >= 50.0
  - op: add
    attribute: Discount
    expr: item.Total * 0.5
  - op: rename
    attribute: Status
    to: State
rollback:
  - op: rename
    attribute: State
    to: Status
  - op: remove
    attribute: Discount
`

// seedOrders stores o00..o{n-1}; even orders are open and Total is the index.
func seedOrders(t *testing.T, n int) *mock.Store {
	t.Helper()
	store := mock.New().WithTable("orders", "Id", "")
	for i := range n {
		status := "closed"
		if i%2 == 0 {
			status = "open"
		}
		_, err := store.PutItem(context.Background(), &dynamodb.PutItemInput{
			TableName: aws.String("orders"),
			Item: map[string]types.AttributeValue{
				"Id":     &types.AttributeValueMemberS{Value: fmt.Sprintf("o%02d", i)},
				"Status": &types.AttributeValueMemberS{Value: status},
				"Total":  &types.AttributeValueMemberN{Value: strconv.Itoa(i)},
				"Tags":   &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
			},
		})
		require.NoError(t, err)
	}
	store.Reset()
	return store
}

func byID(store *mock.Store) map[string]map[string]types.AttributeValue {
	out := map[string]map[string]types.AttributeValue{}
	for _, item := range store.Items("orders") {
		out[item["Id"].(*types.AttributeValueMemberS).Value] = item
	}
	return out
}

func newTransformer(t *testing.T, store Store, doc string, opts ...Option) *Transformer {
	t.Helper()
	plan, err := ParsePlan([]byte(doc))
	require.NoError(t, err)
	tr, err := New(store, plan, opts...)
	require.NoError(t, err)
	return tr
}

func TestRun(t *testing.T) {
	store := seedOrders(t, 60)
	before := byID(store)
	tr := newTransformer(t, store, ordersPlan)

	report, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Report{Scanned: 60, Transformed: 25, Removed: 5}, report)
	assert.Equal(t, []int{5, 25}, store.BatchSizes())
	assert.Equal(t, 55, store.Count("orders"))

	items := byID(store)
	for _, id := range []string{"o50", "o52", "o54", "o56", "o58"} {
		assert.NotContains(t, items, id)
	}

	o02 := items["o02"]
	assert.NotContains(t, o02, "Status")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "open"}, o02["State"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1"}, o02["Discount"])
	assert.Equal(t, before["o02"]["Tags"], o02["Tags"])
	assert.IsType(t, &types.AttributeValueMemberSS{}, o02["Tags"])

	assert.Equal(t, before["o01"], items["o01"])
	assert.Equal(t, before["o51"], items["o51"])
}

func TestRunChunks(t *testing.T) {
	store := seedOrders(t, 60)
	tr := newTransformer(t, store, `
name: flag
table: orders
partitionKey: Id
steps:
  - op: set
    attribute: Migrated
    value: true
`, WithConcurrency(1))

	report, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, report.Transformed)
	assert.Equal(t, []int{25, 25, 10}, store.BatchSizes())
	for _, item := range store.Items("orders") {
		assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, item["Migrated"])
	}

	store.Reset()
	report, err = tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Transformed)
	assert.Empty(t, store.BatchSizes())
}

func TestRollback(t *testing.T) {
	store := seedOrders(t, 10)
	before := byID(store)
	tr := newTransformer(t, store, ordersPlan)

	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	report, err := tr.Rollback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Transformed)
	assert.Equal(t, before, byID(store))

	noRollback := newTransformer(t, store, `
name: no-rollback
table: orders
partitionKey: Id
steps:
  - op: remove
    attribute: Tags
`)
	_, err = noRollback.Rollback(context.Background())
	assert.True(t, errors.IsValidationError(err))
}

func TestPreview(t *testing.T) {
	store := seedOrders(t, 60)
	before := byID(store)
	tr := newTransformer(t, store, ordersPlan)
	path := filepath.Join(t.TempDir(), "preview.json")

	report, err := tr.Preview(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, &Report{Scanned: 60, Transformed: 25, Removed: 5}, report)
	assert.Zero(t, store.Calls("BatchWriteItem"))
	assert.Equal(t, before, byID(store))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		TransformedItems []map[string]any `json:"transformedItems"`
		ItemsToRemove    []map[string]any `json:"itemsToRemove"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.TransformedItems, 25)
	require.Len(t, doc.ItemsToRemove, 5)
	assert.Equal(t, "o00", doc.TransformedItems[0]["Id"])
	assert.Equal(t, "open", doc.TransformedItems[0]["State"])
	assert.Equal(t, "open", doc.ItemsToRemove[0]["Status"])
}

func TestKeyChangeMovesItem(t *testing.T) {
	store := seedOrders(t, 4)
	tr := newTransformer(t, store, `
name: rekey
table: orders
partitionKey: Id
steps:
  - op: filter
    expr: item.Id == 'o00'
  - op: map
    attribute: Id
    expr: "'archived-' + item.Id"
`)

	_, err := tr.Run(context.Background())
	require.NoError(t, err)
	items := byID(store)
	assert.Len(t, items, 4)
	assert.NotContains(t, items, "o00")
	require.Contains(t, items, "archived-o00")
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, items["archived-o00"]["Total"])
}

func TestMapWholeItem(t *testing.T) {
	store := seedOrders(t, 4)
	tr := newTransformer(t, store, `
name: slim
table: orders
partitionKey: Id
steps:
  - op: filter
    expr: item.Id == 'o03'
  - op: map
    expr: "{'Id': item.Id, 'Total': item.Total + 1.0}"
`)

	_, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{
		"Id":    &types.AttributeValueMemberS{Value: "o03"},
		"Total": &types.AttributeValueMemberN{Value: "4"},
	}, byID(store)["o03"])
}

func TestMapMustKeepKey(t *testing.T) {
	store := seedOrders(t, 2)
	tr := newTransformer(t, store, `
name: broken
table: orders
partitionKey: Id
steps:
  - op: remove
    attribute: Id
`)

	_, err := tr.Run(context.Background())
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, store.Calls("BatchWriteItem"))
}

func TestPlanValidation(t *testing.T) {
	cases := map[string]string{
		"NoSteps":        "name: x\nsteps: []\n",
		"UnknownOp":      "name: x\nsteps:\n  - op: upsert\n",
		"AddNoAttribute": "name: x\nsteps:\n  - op: add\n    expr: '1'\n",
		"RenameNoTarget": "name: x\nsteps:\n  - op: rename\n    attribute: A\n",
		"SetExpr":        "name: x\nsteps:\n  - op: set\n    attribute: A\n    expr: '1'\n",
		"FilterNoExpr":   "name: x\nsteps:\n  - op: filter\n",
		"BadRollback":    "name: x\nsteps:\n  - op: remove\n    attribute: A\nrollback:\n  - op: rename\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(doc))
			assert.True(t, errors.IsValidationError(err), "%v", err)
		})
	}

	t.Run("CompileError", func(t *testing.T) {
		plan, err := ParsePlan([]byte("name: x\ntable: t\npartitionKey: Id\nsteps:\n  - op: filter\n    expr: 'item.Total +'\n"))
		require.NoError(t, err)
		_, err = New(mock.New(), plan)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("MissingTable", func(t *testing.T) {
		plan, err := ParsePlan([]byte("name: x\nsteps:\n  - op: remove\n    attribute: A\n"))
		require.NoError(t, err)
		_, err = New(mock.New(), plan)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("NonBoolFilter", func(t *testing.T) {
		store := seedOrders(t, 1)
		tr := newTransformer(t, store, "name: x\ntable: orders\npartitionKey: Id\nsteps:\n  - op: filter\n    expr: item.Total\n")
		_, err := tr.Run(context.Background())
		assert.ErrorContains(t, err, "want bool")
	})
}

func TestStoreFailures(t *testing.T) {
	t.Run("Scan", func(t *testing.T) {
		cause := stderrors.New("scan down")
		store := seedOrders(t, 3).WithScanError(cause)
		_, err := newTransformer(t, store, ordersPlan).Run(context.Background())
		assert.True(t, errors.IsOperationError(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Batch", func(t *testing.T) {
		cause := stderrors.New("batch down")
		store := seedOrders(t, 3).WithBatchError(cause)
		_, err := newTransformer(t, store, ordersPlan).Run(context.Background())
		assert.True(t, errors.IsOperationError(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Unprocessed", func(t *testing.T) {
		store := seedOrders(t, 3).WithUnprocessed(1)
		_, err := newTransformer(t, store, ordersPlan).Run(context.Background())
		assert.True(t, errors.IsPartialBatch(err))
	})
}

func TestBackup(t *testing.T) {
	store := seedOrders(t, 3)
	tr := newTransformer(t, store, ordersPlan)

	require.NoError(t, tr.Backup(context.Background(), "before-split"))
	assert.Equal(t, 1, store.Backups("orders"))
	assert.True(t, errors.IsValidationError(tr.Backup(context.Background(), "")))
}

func TestBind(t *testing.T) {
	plan, err := ParsePlan([]byte("name: x\nentity: Player\nsteps:\n  - op: remove\n    attribute: Club\n"))
	require.NoError(t, err)

	require.NoError(t, plan.Bind(testmodels.PlayerSchema(), ""))
	assert.Equal(t, testmodels.PlayerTable, plan.Table)
	assert.Equal(t, "Kind", plan.PartitionKey)
	assert.Equal(t, "PlayerId", plan.SortKey)

	plan.Table = ""
	require.NoError(t, plan.Bind(testmodels.PlayerSchema(), "players-prod"))
	assert.Equal(t, "players-prod", plan.Table)

	assert.True(t, errors.IsValidationError(plan.Bind(testmodels.RatingSystemSchema(), "")))
}

func TestScaffold(t *testing.T) {
	doc, err := Scaffold("add-flag", "Player")
	require.NoError(t, err)
	plan, err := ParsePlan(doc)
	require.NoError(t, err)
	assert.Equal(t, "Player", plan.Entity)
	assert.NotEmpty(t, plan.Rollback)

	doc, err = Scaffold("add-flag", "")
	require.NoError(t, err)
	plan, err = ParsePlan(doc)
	require.NoError(t, err)
	_, err = New(mock.New(), plan)
	assert.NoError(t, err)
}
