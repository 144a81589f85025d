package gorm

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

func TestEncodeValue(t *testing.T) {
	encoded, err := encodeValue(store.KeyValue{Key: "accuracy", ValueType: query.ValueTypeNumber, Value: 0.95})
	require.NoError(t, err)
	assert.Equal(t, "0.95", encoded)

	encoded, err = encodeValue(store.KeyValue{Key: "epochs", ValueType: query.ValueTypeNumber, Value: 10})
	require.NoError(t, err)
	assert.Equal(t, "10", encoded)

	encoded, err = encodeValue(store.KeyValue{Key: "framework", ValueType: query.ValueTypeString, Value: "pytorch"})
	require.NoError(t, err)
	assert.Equal(t, "pytorch", encoded)

	_, err = encodeValue(store.KeyValue{Key: "accuracy", ValueType: query.ValueTypeNumber, Value: "not a number"})
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument))

	_, err = encodeValue(store.KeyValue{Key: "framework", ValueType: "ENUM", Value: "pytorch"})
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument))
}

func TestDecodeValue(t *testing.T) {
	assert.Equal(t, 0.95, decodeValue(query.ValueTypeNumber, "0.95"))
	assert.Equal(t, "pytorch", decodeValue(query.ValueTypeString, "pytorch"))
	assert.Equal(t, `{"a":1}`, decodeValue(query.ValueTypeBlob, `{"a":1}`))
	// Corrupt numeric storage falls back to the raw string.
	assert.Equal(t, "oops", decodeValue(query.ValueTypeNumber, "oops"))
}

func TestCheckAttribute(t *testing.T) {
	err := checkAttribute(store.KeyValue{Key: "model.layers", ValueType: query.ValueTypeNumber, Value: 12.0})
	assert.NoError(t, err)

	err = checkAttribute(store.KeyValue{Key: "", ValueType: query.ValueTypeString, Value: "x"})
	assert.True(t, errs.IsKind(err, errs.KindInvalidArgument))
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(&pq.Error{Code: "40001"}))
	assert.True(t, transient(&pq.Error{Code: "40P01"}))
	assert.True(t, transient(&pq.Error{Code: "08006"}))
	assert.False(t, transient(&pq.Error{Code: "23505"}))
	assert.True(t, transient(errors.New("read tcp: connection reset by peer")))
	assert.False(t, transient(errors.New("record not found")))
}
