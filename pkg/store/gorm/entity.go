package gorm

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

// nowMillis is the mutation clock, swappable in tests.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// entityAccessors holds the shared tag/attribute/artifact operations for
// one entity table. Tags, attributes and artifacts live in shared tables
// keyed by (entity_id, entity_type).
type entityAccessors struct {
	table      string
	entityType string
}

// lockLive locks the live entity row for the duration of the
// transaction. Concurrent mutations on the same entity serialize here.
func (e entityAccessors) lockLive(tx *gorm.DB, id string) error {
	var found string
	result := tx.Raw(
		fmt.Sprintf("SELECT id FROM %s WHERE id = ? AND deleted = false FOR UPDATE", e.table),
		id,
	).Scan(&found)
	if result.Error != nil {
		return result.Error
	}
	if found == "" {
		return errs.NotFound("%s %s not found", e.entityType, id)
	}
	return nil
}

// bumpUpdated advances date_updated; it never moves backwards.
func (e entityAccessors) bumpUpdated(tx *gorm.DB, id string, now int64) error {
	return tx.Exec(
		fmt.Sprintf("UPDATE %s SET date_updated = GREATEST(date_updated, ?) WHERE id = ?", e.table),
		now, id,
	).Error
}

func (e entityAccessors) fetchTags(tx *gorm.DB, id string) ([]string, error) {
	var tags []string
	result := tx.Raw(
		"SELECT tag FROM tag_mappings WHERE entity_id = ? AND entity_type = ? ORDER BY position",
		id, e.entityType,
	).Scan(&tags)
	if result.Error != nil {
		return nil, result.Error
	}
	return tags, nil
}

// insertTags unions tags into the entity's tag list; duplicates are
// no-ops via the conflict clause.
func (e entityAccessors) insertTags(tx *gorm.DB, id string, tags []string) error {
	for _, tag := range tags {
		err := tx.Exec(
			`INSERT INTO tag_mappings (entity_id, entity_type, tag)
			 VALUES (?, ?, ?)
			 ON CONFLICT (entity_id, entity_type, tag) DO NOTHING`,
			id, e.entityType, tag,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteTags removes the listed tags, or all of them when deleteAll is
// set. Missing tags are no-ops.
func (e entityAccessors) deleteTags(tx *gorm.DB, id string, tags []string, deleteAll bool) error {
	if deleteAll {
		return tx.Exec(
			"DELETE FROM tag_mappings WHERE entity_id = ? AND entity_type = ?",
			id, e.entityType,
		).Error
	}
	if len(tags) == 0 {
		return nil
	}
	return tx.Exec(
		"DELETE FROM tag_mappings WHERE entity_id = ? AND entity_type = ? AND tag IN ?",
		id, e.entityType, tags,
	).Error
}

type attributeRow struct {
	KvKey     string
	ValueType string
	KvValue   string
}

func (e entityAccessors) fetchAttributes(tx *gorm.DB, id string, keys []string, getAll bool) ([]store.KeyValue, error) {
	sql := "SELECT kv_key, value_type, kv_value FROM attributes WHERE entity_id = ? AND entity_type = ?"
	args := []interface{}{id, e.entityType}
	if !getAll {
		if len(keys) == 0 {
			return []store.KeyValue{}, nil
		}
		sql += " AND kv_key IN ?"
		args = append(args, keys)
	}
	sql += " ORDER BY kv_key"

	var rows []attributeRow
	if result := tx.Raw(sql, args...).Scan(&rows); result.Error != nil {
		return nil, result.Error
	}

	attrs := make([]store.KeyValue, 0, len(rows))
	for _, row := range rows {
		vt := query.ValueType(row.ValueType)
		attrs = append(attrs, store.KeyValue{
			Key:       row.KvKey,
			ValueType: vt,
			Value:     decodeValue(vt, row.KvValue),
		})
	}
	return attrs, nil
}

// insertAttributes adds create-once attributes; any key already present
// fails the whole batch with an already-exists error.
func (e entityAccessors) insertAttributes(tx *gorm.DB, id string, attrs []store.KeyValue) error {
	keys := make([]string, 0, len(attrs))
	for _, kv := range attrs {
		keys = append(keys, kv.Key)
	}

	var existing []string
	result := tx.Raw(
		"SELECT kv_key FROM attributes WHERE entity_id = ? AND entity_type = ? AND kv_key IN ?",
		id, e.entityType, keys,
	).Scan(&existing)
	if result.Error != nil {
		return result.Error
	}
	if len(existing) > 0 {
		return errs.AlreadyExists("attribute %q already exists on %s %s", existing[0], e.entityType, id)
	}

	for _, kv := range attrs {
		encoded, err := encodeValue(kv)
		if err != nil {
			return err
		}
		err = tx.Exec(
			"INSERT INTO attributes (entity_id, entity_type, kv_key, value_type, kv_value) VALUES (?, ?, ?, ?, ?)",
			id, e.entityType, kv.Key, string(kv.ValueType), encoded,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// upsertAttribute updates or inserts a single attribute. Returns zero
// rows affected when the stored value already equals the new one; the
// caller skips the date_updated bump in that case.
func (e entityAccessors) upsertAttribute(tx *gorm.DB, id string, kv store.KeyValue) (int64, error) {
	encoded, err := encodeValue(kv)
	if err != nil {
		return 0, err
	}

	var current attributeRow
	result := tx.Raw(
		"SELECT kv_key, value_type, kv_value FROM attributes WHERE entity_id = ? AND entity_type = ? AND kv_key = ?",
		id, e.entityType, kv.Key,
	).Scan(&current)
	if result.Error != nil {
		return 0, result.Error
	}

	if current.KvKey != "" {
		if current.ValueType == string(kv.ValueType) && current.KvValue == encoded {
			return 0, nil
		}
		update := tx.Exec(
			"UPDATE attributes SET value_type = ?, kv_value = ? WHERE entity_id = ? AND entity_type = ? AND kv_key = ?",
			string(kv.ValueType), encoded, id, e.entityType, kv.Key,
		)
		return update.RowsAffected, update.Error
	}

	insert := tx.Exec(
		"INSERT INTO attributes (entity_id, entity_type, kv_key, value_type, kv_value) VALUES (?, ?, ?, ?, ?)",
		id, e.entityType, kv.Key, string(kv.ValueType), encoded,
	)
	return insert.RowsAffected, insert.Error
}

func (e entityAccessors) deleteAttributes(tx *gorm.DB, id string, keys []string, deleteAll bool) error {
	if deleteAll {
		return tx.Exec(
			"DELETE FROM attributes WHERE entity_id = ? AND entity_type = ?",
			id, e.entityType,
		).Error
	}
	if len(keys) == 0 {
		return nil
	}
	return tx.Exec(
		"DELETE FROM attributes WHERE entity_id = ? AND entity_type = ? AND kv_key IN ?",
		id, e.entityType, keys,
	).Error
}

type artifactRow struct {
	ArKey        string
	ArPath       string
	ArtifactType string
}

func (e entityAccessors) fetchArtifacts(tx *gorm.DB, id string) ([]store.Artifact, error) {
	var rows []artifactRow
	result := tx.Raw(
		"SELECT ar_key, ar_path, artifact_type FROM artifacts WHERE entity_id = ? AND entity_type = ? ORDER BY ar_key",
		id, e.entityType,
	).Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	artifacts := make([]store.Artifact, 0, len(rows))
	for _, row := range rows {
		artifacts = append(artifacts, store.Artifact{
			Key:          row.ArKey,
			Path:         row.ArPath,
			ArtifactType: row.ArtifactType,
		})
	}
	return artifacts, nil
}

// insertArtifacts appends artifacts; a duplicate key fails the batch.
func (e entityAccessors) insertArtifacts(tx *gorm.DB, id string, artifacts []store.Artifact) error {
	keys := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if a.Key == "" {
			return errs.InvalidArgument("artifact key must not be empty")
		}
		keys = append(keys, a.Key)
	}

	var existing []string
	result := tx.Raw(
		"SELECT ar_key FROM artifacts WHERE entity_id = ? AND entity_type = ? AND ar_key IN ?",
		id, e.entityType, keys,
	).Scan(&existing)
	if result.Error != nil {
		return result.Error
	}
	if len(existing) > 0 {
		return errs.AlreadyExists("artifact %q already exists on %s %s", existing[0], e.entityType, id)
	}

	for _, a := range artifacts {
		err := tx.Exec(
			"INSERT INTO artifacts (entity_id, entity_type, ar_key, ar_path, artifact_type) VALUES (?, ?, ?, ?, ?)",
			id, e.entityType, a.Key, a.Path, a.ArtifactType,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (e entityAccessors) deleteArtifact(tx *gorm.DB, id, key string) error {
	result := tx.Exec(
		"DELETE FROM artifacts WHERE entity_id = ? AND entity_type = ? AND ar_key = ?",
		id, e.entityType, key,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("artifact %q not found on %s %s", key, e.entityType, id)
	}
	return nil
}

// copyDecorations duplicates tags, attributes and artifacts from one
// entity to another inside the same transaction.
func (e entityAccessors) copyDecorations(tx *gorm.DB, fromID, toID string) error {
	err := tx.Exec(
		`INSERT INTO tag_mappings (entity_id, entity_type, tag)
		 SELECT ?, entity_type, tag FROM tag_mappings WHERE entity_id = ? AND entity_type = ?`,
		toID, fromID, e.entityType,
	).Error
	if err != nil {
		return err
	}
	err = tx.Exec(
		`INSERT INTO attributes (entity_id, entity_type, kv_key, value_type, kv_value)
		 SELECT ?, entity_type, kv_key, value_type, kv_value FROM attributes WHERE entity_id = ? AND entity_type = ?`,
		toID, fromID, e.entityType,
	).Error
	if err != nil {
		return err
	}
	return tx.Exec(
		`INSERT INTO artifacts (entity_id, entity_type, ar_key, ar_path, artifact_type)
		 SELECT ?, entity_type, ar_key, ar_path, artifact_type FROM artifacts WHERE entity_id = ? AND entity_type = ?`,
		toID, fromID, e.entityType,
	).Error
}
