package query

import (
	"strings"

	"github.com/zulily/modeldb/pkg/errs"
)

// FieldKind says where a clause key resolves.
type FieldKind int

const (
	// FieldEntity is a whitelisted column on the entity table.
	FieldEntity FieldKind = iota
	// FieldAttribute is an entry in the attributes table.
	FieldAttribute
	// FieldTag is an entry in the tag_mappings table.
	FieldTag
)

// Entity selects which column whitelist a clause key resolves against.
type Entity string

const (
	EntityProject Entity = "PROJECT"
	EntityDataset Entity = "DATASET"
)

// entityField describes one filterable/sortable entity column.
type entityField struct {
	column  string
	numeric bool
}

// sharedFields are the columns every catalog entity table carries. Keys
// never flow into SQL; only these column names do.
var sharedFields = map[string]entityField{
	"id":           {column: "id"},
	"name":         {column: "name"},
	"description":  {column: "description"},
	"owner":        {column: "owner"},
	"workspace":    {column: "workspace"},
	"visibility":   {column: "visibility"},
	"date_created": {column: "date_created", numeric: true},
	"date_updated": {column: "date_updated", numeric: true},
}

// entityFields extends the shared whitelist with the columns that exist
// only on one entity's table.
var entityFields = map[Entity]map[string]entityField{
	EntityProject: withFields(map[string]entityField{
		"short_name": {column: "short_name"},
	}),
	EntityDataset: withFields(map[string]entityField{
		"dataset_type": {column: "dataset_type"},
	}),
}

func withFields(extra map[string]entityField) map[string]entityField {
	fields := make(map[string]entityField, len(sharedFields)+len(extra))
	for key, f := range sharedFields {
		fields[key] = f
	}
	for key, f := range extra {
		fields[key] = f
	}
	return fields
}

// fieldFor resolves a clause or sort key against an entity's whitelist.
func fieldFor(entity Entity, key string) (entityField, bool) {
	fields, ok := entityFields[entity]
	if !ok {
		fields = sharedFields
	}
	f, ok := fields[key]
	return f, ok
}

// Clause is one validated comparison within a key group.
type Clause struct {
	Operator  Operator
	ValueType ValueType
	Value     interface{}
}

// KeyGroup is the OR of all clauses sharing one key. Column is set only
// for FieldEntity groups.
type KeyGroup struct {
	Key     string
	Kind    FieldKind
	Column  string
	Clauses []Clause
}

// Predicate is the compiled filter tree: the AND of its key groups.
type Predicate struct {
	Groups []KeyGroup
}

// Empty reports whether the predicate constrains nothing.
func (p *Predicate) Empty() bool {
	return p == nil || len(p.Groups) == 0
}

// Compile validates raw clauses against the entity's whitelist and
// normalizes them into a Predicate. Clauses on the same key are grouped
// in first-appearance order, so the same input always yields a
// structurally identical tree.
func Compile(entity Entity, clauses []KeyValueQuery) (*Predicate, error) {
	pred := &Predicate{}
	index := make(map[string]int)

	for _, kvq := range clauses {
		group, err := resolveClause(entity, kvq)
		if err != nil {
			return nil, err
		}

		clause := Clause{Operator: kvq.Operator, ValueType: kvq.ValueType, Value: kvq.Value}
		if at, ok := index[kvq.Key]; ok {
			pred.Groups[at].Clauses = append(pred.Groups[at].Clauses, clause)
			continue
		}
		group.Clauses = []Clause{clause}
		index[kvq.Key] = len(pred.Groups)
		pred.Groups = append(pred.Groups, group)
	}

	return pred, nil
}

func resolveClause(entity Entity, kvq KeyValueQuery) (KeyGroup, error) {
	if kvq.Key == "" {
		return KeyGroup{}, errs.InvalidArgument("filter clause has an empty key")
	}
	if !validOperator(kvq.Operator) {
		return KeyGroup{}, errs.InvalidArgument("unknown operator %q for key %q", kvq.Operator, kvq.Key)
	}
	if !validValueType(kvq.ValueType) {
		return KeyGroup{}, errs.InvalidArgument("unknown value type %q for key %q", kvq.ValueType, kvq.Key)
	}
	if err := checkValue(kvq); err != nil {
		return KeyGroup{}, err
	}

	switch {
	case kvq.Key == TagsKey:
		return compileTagClause(kvq)
	case strings.HasPrefix(kvq.Key, AttributeKeyPrefix):
		return compileAttributeClause(kvq)
	default:
		return compileEntityClause(entity, kvq)
	}
}

func compileTagClause(kvq KeyValueQuery) (KeyGroup, error) {
	if kvq.ValueType != ValueTypeString {
		return KeyGroup{}, errs.InvalidArgument("tags accept only string clauses, got %s", kvq.ValueType)
	}
	switch kvq.Operator {
	case OperatorEQ, OperatorNE, OperatorContains:
	default:
		return KeyGroup{}, errs.InvalidArgument("operator %s is not valid for tags", kvq.Operator)
	}
	tag, _ := kvq.Value.(string)
	if !ValidTag(tag) {
		return KeyGroup{}, errs.InvalidArgument("tag filter value exceeds %d characters or is empty", MaxTagLength)
	}
	return KeyGroup{Key: kvq.Key, Kind: FieldTag}, nil
}

func compileAttributeClause(kvq KeyValueQuery) (KeyGroup, error) {
	attrKey := strings.TrimPrefix(kvq.Key, AttributeKeyPrefix)
	if !ValidAttributeKey(attrKey) {
		return KeyGroup{}, errs.InvalidArgument("invalid attribute key %q in filter", attrKey)
	}
	if kvq.ValueType == ValueTypeBlob && !equalityOperator(kvq.Operator) {
		return KeyGroup{}, errs.InvalidArgument("operator %s is not valid for blob attribute %q", kvq.Operator, attrKey)
	}
	if kvq.Operator == OperatorContains && kvq.ValueType != ValueTypeString {
		return KeyGroup{}, errs.InvalidArgument("CONTAINS requires a string value for attribute %q", attrKey)
	}
	// Ordering on string attributes is lexicographic and allowed; blob
	// attributes were already limited to equality above.
	return KeyGroup{Key: kvq.Key, Kind: FieldAttribute}, nil
}

func compileEntityClause(entity Entity, kvq KeyValueQuery) (KeyGroup, error) {
	field, ok := fieldFor(entity, kvq.Key)
	if !ok {
		return KeyGroup{}, errs.InvalidArgument("unknown filter key %q for %s", kvq.Key, entity)
	}
	if kvq.ValueType == ValueTypeBlob {
		return KeyGroup{}, errs.InvalidArgument("blob clauses are not valid for field %q", kvq.Key)
	}
	if field.numeric {
		if kvq.ValueType != ValueTypeNumber {
			return KeyGroup{}, errs.InvalidArgument("field %q requires a number clause, got %s", kvq.Key, kvq.ValueType)
		}
	} else {
		if kvq.ValueType != ValueTypeString {
			return KeyGroup{}, errs.InvalidArgument("field %q requires a string clause, got %s", kvq.Key, kvq.ValueType)
		}
		if orderingOperator(kvq.Operator) {
			return KeyGroup{}, errs.InvalidArgument("operator %s is not valid for string field %q", kvq.Operator, kvq.Key)
		}
	}
	if kvq.Operator == OperatorContains && field.numeric {
		return KeyGroup{}, errs.InvalidArgument("CONTAINS is not valid for numeric field %q", kvq.Key)
	}
	return KeyGroup{Key: kvq.Key, Kind: FieldEntity, Column: field.column}, nil
}

// checkValue rejects type confusion between the declared value type and
// the dynamic value before anything reaches the store.
func checkValue(kvq KeyValueQuery) error {
	switch kvq.ValueType {
	case ValueTypeNumber:
		switch kvq.Value.(type) {
		case int, int32, int64, float32, float64:
			return nil
		}
		return errs.InvalidArgument("clause on %q declares NUMBER but value is not numeric", kvq.Key)
	case ValueTypeString, ValueTypeBlob:
		if _, ok := kvq.Value.(string); !ok {
			return errs.InvalidArgument("clause on %q declares %s but value is not a string", kvq.Key, kvq.ValueType)
		}
		return nil
	}
	return nil
}

func validOperator(op Operator) bool {
	switch op {
	case OperatorEQ, OperatorNE, OperatorGT, OperatorGTE, OperatorLT, OperatorLTE, OperatorContains:
		return true
	}
	return false
}

func validValueType(vt ValueType) bool {
	switch vt {
	case ValueTypeNumber, ValueTypeString, ValueTypeBlob:
		return true
	}
	return false
}

func equalityOperator(op Operator) bool {
	return op == OperatorEQ || op == OperatorNE
}

func orderingOperator(op Operator) bool {
	switch op {
	case OperatorGT, OperatorGTE, OperatorLT, OperatorLTE:
		return true
	}
	return false
}
