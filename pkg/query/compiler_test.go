package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulily/modeldb/pkg/errs"
)

func TestCompileGroupsSameKeyWithOr(t *testing.T) {
	pred, err := Compile(EntityProject, []KeyValueQuery{
		{Key: "tags", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "a"},
		{Key: "owner", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "u1"},
		{Key: "tags", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "b"},
	})
	require.NoError(t, err)
	require.Len(t, pred.Groups, 2)

	// Groups keep first-appearance order; the two tag clauses collapse
	// into one OR group.
	assert.Equal(t, "tags", pred.Groups[0].Key)
	assert.Equal(t, FieldTag, pred.Groups[0].Kind)
	assert.Len(t, pred.Groups[0].Clauses, 2)
	assert.Equal(t, "a", pred.Groups[0].Clauses[0].Value)
	assert.Equal(t, "b", pred.Groups[0].Clauses[1].Value)

	assert.Equal(t, "owner", pred.Groups[1].Key)
	assert.Equal(t, FieldEntity, pred.Groups[1].Kind)
	assert.Equal(t, "owner", pred.Groups[1].Column)
	assert.Len(t, pred.Groups[1].Clauses, 1)
}

func TestCompileIsDeterministic(t *testing.T) {
	clauses := []KeyValueQuery{
		{Key: "name", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "mnist"},
		{Key: "attributes.accuracy", Operator: OperatorGTE, ValueType: ValueTypeNumber, Value: 0.9},
		{Key: "name", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "cifar"},
	}
	first, err := Compile(EntityProject, clauses)
	require.NoError(t, err)
	second, err := Compile(EntityProject, clauses)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompileAttributeClause(t *testing.T) {
	pred, err := Compile(EntityProject, []KeyValueQuery{
		{Key: "attributes.learning_rate", Operator: OperatorLT, ValueType: ValueTypeNumber, Value: 0.01},
	})
	require.NoError(t, err)
	require.Len(t, pred.Groups, 1)
	assert.Equal(t, FieldAttribute, pred.Groups[0].Kind)
}

func TestCompileRejections(t *testing.T) {
	cases := []struct {
		name   string
		clause KeyValueQuery
	}{
		{"empty key", KeyValueQuery{Key: "", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "x"}},
		{"unknown operator", KeyValueQuery{Key: "name", Operator: "LIKE", ValueType: ValueTypeString, Value: "x"}},
		{"unknown value type", KeyValueQuery{Key: "name", Operator: OperatorEQ, ValueType: "FLOAT", Value: "x"}},
		{"unknown key", KeyValueQuery{Key: "nope", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "x"}},
		{"numeric operator on tags", KeyValueQuery{Key: "tags", Operator: OperatorGT, ValueType: ValueTypeString, Value: "x"}},
		{"number clause on tags", KeyValueQuery{Key: "tags", Operator: OperatorEQ, ValueType: ValueTypeNumber, Value: 1}},
		{"oversized tag value", KeyValueQuery{Key: "tags", Operator: OperatorEQ, ValueType: ValueTypeString, Value: strings.Repeat("t", MaxTagLength+1)}},
		{"bad attribute key charset", KeyValueQuery{Key: "attributes.bad key", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "x"}},
		{"ordering operator on blob attribute", KeyValueQuery{Key: "attributes.cfg", Operator: OperatorGT, ValueType: ValueTypeBlob, Value: "{}"}},
		{"contains on number attribute", KeyValueQuery{Key: "attributes.acc", Operator: OperatorContains, ValueType: ValueTypeNumber, Value: 1}},
		{"blob clause on entity field", KeyValueQuery{Key: "name", Operator: OperatorEQ, ValueType: ValueTypeBlob, Value: "{}"}},
		{"ordering operator on string field", KeyValueQuery{Key: "owner", Operator: OperatorGTE, ValueType: ValueTypeString, Value: "u"}},
		{"string clause on date field", KeyValueQuery{Key: "date_created", Operator: OperatorGT, ValueType: ValueTypeString, Value: "yesterday"}},
		{"number clause on string field", KeyValueQuery{Key: "name", Operator: OperatorEQ, ValueType: ValueTypeNumber, Value: 7}},
		{"declared number with string value", KeyValueQuery{Key: "date_created", Operator: OperatorGT, ValueType: ValueTypeNumber, Value: "1000"}},
		{"declared string with numeric value", KeyValueQuery{Key: "name", Operator: OperatorEQ, ValueType: ValueTypeString, Value: 7}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(EntityProject, []KeyValueQuery{tc.clause})
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindInvalidArgument), "got %v", err)
		})
	}
}

func TestCompilePerEntityWhitelists(t *testing.T) {
	shortName := KeyValueQuery{Key: "short_name", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "fraud"}
	datasetType := KeyValueQuery{Key: "dataset_type", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "RAW"}

	// short_name exists only on the projects table; compiling it for
	// datasets must fail here, not at query time.
	_, err := Compile(EntityDataset, []KeyValueQuery{shortName})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument), "got %v", err)

	pred, err := Compile(EntityProject, []KeyValueQuery{shortName})
	require.NoError(t, err)
	assert.Equal(t, "short_name", pred.Groups[0].Column)

	// dataset_type is the reverse case.
	_, err = Compile(EntityProject, []KeyValueQuery{datasetType})
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument), "got %v", err)

	pred, err = Compile(EntityDataset, []KeyValueQuery{datasetType})
	require.NoError(t, err)
	assert.Equal(t, "dataset_type", pred.Groups[0].Column)

	// Sort keys resolve against the same whitelist: a projects-only key
	// falls back rather than reaching dataset SQL.
	assert.Equal(t, Sort{Column: DefaultSortColumn, Ascending: false}, ResolveSort(EntityDataset, "short_name", true))
	assert.Equal(t, Sort{Column: "dataset_type", Ascending: true}, ResolveSort(EntityDataset, "dataset_type", true))
}

func TestCompileEmptyInput(t *testing.T) {
	pred, err := Compile(EntityProject, nil)
	require.NoError(t, err)
	assert.True(t, pred.Empty())
}

func TestResolveSort(t *testing.T) {
	s := ResolveSort(EntityProject, "name", true)
	assert.Equal(t, Sort{Column: "name", Ascending: true}, s)

	// Unknown keys fall back to date_updated descending, ignoring the
	// requested direction.
	s = ResolveSort(EntityProject, "metrics.accuracy", true)
	assert.Equal(t, Sort{Column: DefaultSortColumn, Ascending: false}, s)

	s = ResolveSort(EntityProject, "", true)
	assert.Equal(t, Sort{Column: DefaultSortColumn, Ascending: false}, s)
}

func TestPageWindow(t *testing.T) {
	p := Page{PageNumber: 2, PageLimit: 10}
	require.NoError(t, p.Validate())
	assert.False(t, p.Unpaged())
	limit, offset := p.Window()
	assert.Equal(t, 10, limit)
	assert.Equal(t, 10, offset)

	assert.True(t, Page{PageNumber: 0, PageLimit: 10}.Unpaged())
	assert.True(t, Page{PageNumber: 3, PageLimit: 0}.Unpaged())

	assert.Error(t, Page{PageNumber: -1, PageLimit: 10}.Validate())
	assert.Error(t, Page{PageNumber: 1, PageLimit: -5}.Validate())
}

func BenchmarkCompile(b *testing.B) {
	clauses := []KeyValueQuery{
		{Key: "tags", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "prod"},
		{Key: "tags", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "staging"},
		{Key: "owner", Operator: OperatorEQ, ValueType: ValueTypeString, Value: "u1"},
		{Key: "attributes.accuracy", Operator: OperatorGTE, ValueType: ValueTypeNumber, Value: 0.9},
		{Key: "date_updated", Operator: OperatorGT, ValueType: ValueTypeNumber, Value: int64(1700000000000)},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(EntityProject, clauses); err != nil {
			b.Fatal(err)
		}
	}
}
