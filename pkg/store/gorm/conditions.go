package gorm

import (
	"fmt"
	"strings"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/query"
)

var opSymbols = map[query.Operator]string{
	query.OperatorEQ:  "=",
	query.OperatorNE:  "<>",
	query.OperatorGT:  ">",
	query.OperatorGTE: ">=",
	query.OperatorLT:  "<",
	query.OperatorLTE: "<=",
}

// buildWhere renders predicate ∧ scope into a WHERE fragment with
// placeholder args. empty is true when the scope covers nothing; the
// caller must short-circuit to an empty page without querying.
func buildWhere(table, entityType string, pred *query.Predicate, scope authz.Scope) (where string, args []interface{}, empty bool) {
	if !scope.IsUnrestricted() && scope.Empty() {
		return "", nil, true
	}

	parts := []string{fmt.Sprintf("%s.deleted = false", table)}

	if !pred.Empty() {
		for _, group := range pred.Groups {
			expr, groupArgs := buildGroup(table, entityType, group)
			parts = append(parts, expr)
			args = append(args, groupArgs...)
		}
	}

	if !scope.IsUnrestricted() {
		parts = append(parts, fmt.Sprintf("%s.id IN ?", table))
		args = append(args, scope.IDs())
	}

	return strings.Join(parts, " AND "), args, false
}

// buildGroup renders one key group: the OR of its clauses.
func buildGroup(table, entityType string, group query.KeyGroup) (string, []interface{}) {
	var exprs []string
	var args []interface{}

	for _, clause := range group.Clauses {
		var expr string
		var clauseArgs []interface{}
		switch group.Kind {
		case query.FieldTag:
			expr, clauseArgs = buildTagClause(table, entityType, clause)
		case query.FieldAttribute:
			attrKey := strings.TrimPrefix(group.Key, query.AttributeKeyPrefix)
			expr, clauseArgs = buildAttributeClause(table, entityType, attrKey, clause)
		default:
			expr, clauseArgs = buildEntityClause(table, group.Column, clause)
		}
		exprs = append(exprs, expr)
		args = append(args, clauseArgs...)
	}

	if len(exprs) == 1 {
		return exprs[0], args
	}
	return "(" + strings.Join(exprs, " OR ") + ")", args
}

func buildEntityClause(table, column string, clause query.Clause) (string, []interface{}) {
	if clause.Operator == query.OperatorContains {
		return fmt.Sprintf("%s.%s LIKE ?", table, column),
			[]interface{}{containsPattern(clause.Value.(string))}
	}
	return fmt.Sprintf("%s.%s %s ?", table, column, opSymbols[clause.Operator]),
		[]interface{}{clause.Value}
}

func buildTagClause(table, entityType string, clause query.Clause) (string, []interface{}) {
	sub := fmt.Sprintf(
		"SELECT 1 FROM tag_mappings t WHERE t.entity_id = %s.id AND t.entity_type = ? AND t.tag %%s", table)

	switch clause.Operator {
	case query.OperatorNE:
		return "NOT EXISTS (" + fmt.Sprintf(sub, "= ?") + ")",
			[]interface{}{entityType, clause.Value}
	case query.OperatorContains:
		return "EXISTS (" + fmt.Sprintf(sub, "LIKE ?") + ")",
			[]interface{}{entityType, containsPattern(clause.Value.(string))}
	default:
		return "EXISTS (" + fmt.Sprintf(sub, "= ?") + ")",
			[]interface{}{entityType, clause.Value}
	}
}

func buildAttributeClause(table, entityType, attrKey string, clause query.Clause) (string, []interface{}) {
	var cmp string
	value := clause.Value
	switch {
	case clause.ValueType == query.ValueTypeNumber:
		cmp = fmt.Sprintf("CAST(a.kv_value AS numeric) %s ?", opSymbols[clause.Operator])
	case clause.Operator == query.OperatorContains:
		cmp = "a.kv_value LIKE ?"
		value = containsPattern(clause.Value.(string))
	default:
		cmp = fmt.Sprintf("a.kv_value %s ?", opSymbols[clause.Operator])
	}

	expr := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM attributes a WHERE a.entity_id = %s.id AND a.entity_type = ? AND a.kv_key = ? AND %s)",
		table, cmp)
	return expr, []interface{}{entityType, attrKey, value}
}

// orderBy renders the sort specification with the id ascending
// tie-break that keeps pagination stable across repeated calls.
func orderBy(table string, sort query.Sort) string {
	dir := "DESC"
	if sort.Ascending {
		dir = "ASC"
	}
	return fmt.Sprintf("%s.%s %s, %s.id ASC", table, sort.Column, dir, table)
}

// containsPattern wraps a CONTAINS value for LIKE, escaping the LIKE
// metacharacters in the client value.
func containsPattern(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return "%" + value + "%"
}
