package query

import "regexp"

// ValueType discriminates the encoding of a clause or attribute value.
type ValueType string

const (
	ValueTypeNumber ValueType = "NUMBER"
	ValueTypeString ValueType = "STRING"
	ValueTypeBlob   ValueType = "BLOB"
)

// Operator is a comparison operator in a filter clause.
type Operator string

const (
	OperatorEQ       Operator = "EQ"
	OperatorNE       Operator = "NE"
	OperatorGT       Operator = "GT"
	OperatorGTE      Operator = "GTE"
	OperatorLT       Operator = "LT"
	OperatorLTE      Operator = "LTE"
	OperatorContains Operator = "CONTAINS"
)

// KeyValueQuery is one raw filter clause from a find request.
type KeyValueQuery struct {
	Key       string
	Operator  Operator
	ValueType ValueType
	Value     interface{}
}

// Validation bounds shared with the mutation accessors. Enforced here so
// an invalid filter never reaches the store.
const (
	MaxTagLength          = 40
	MaxAttributeKeyLength = 120
)

// AttributeKeyPrefix marks a clause key that resolves into the attributes
// table rather than an entity column.
const AttributeKeyPrefix = "attributes."

// TagsKey is the clause key that resolves into the tag_mappings table.
const TagsKey = "tags"

var attributeKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

// ValidTag reports whether a tag satisfies the length and charset bounds.
func ValidTag(tag string) bool {
	return tag != "" && len(tag) <= MaxTagLength
}

// ValidAttributeKey reports whether an attribute key satisfies the length
// and charset bounds.
func ValidAttributeKey(key string) bool {
	return key != "" && len(key) <= MaxAttributeKeyLength && attributeKeyPattern.MatchString(key)
}
