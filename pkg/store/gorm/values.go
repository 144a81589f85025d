package gorm

import (
	"strconv"

	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

// encodeValue renders a typed attribute value into its storage form.
func encodeValue(kv store.KeyValue) (string, error) {
	switch kv.ValueType {
	case query.ValueTypeNumber:
		switch v := kv.Value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
		case int:
			return strconv.FormatInt(int64(v), 10), nil
		case int32:
			return strconv.FormatInt(int64(v), 10), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		}
		return "", errs.InvalidArgument("attribute %q declares NUMBER but value is not numeric", kv.Key)
	case query.ValueTypeString, query.ValueTypeBlob:
		if s, ok := kv.Value.(string); ok {
			return s, nil
		}
		return "", errs.InvalidArgument("attribute %q declares %s but value is not a string", kv.Key, kv.ValueType)
	}
	return "", errs.InvalidArgument("attribute %q has unknown value type %q", kv.Key, kv.ValueType)
}

// decodeValue parses a stored attribute value back into its typed form.
// NUMBER decodes to float64; STRING and BLOB stay strings.
func decodeValue(valueType query.ValueType, raw string) interface{} {
	if valueType == query.ValueTypeNumber {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

// checkAttribute validates one incoming attribute before it reaches SQL.
func checkAttribute(kv store.KeyValue) error {
	if !query.ValidAttributeKey(kv.Key) {
		return errs.InvalidArgument("invalid attribute key %q", kv.Key)
	}
	_, err := encodeValue(kv)
	return err
}
