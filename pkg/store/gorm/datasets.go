package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/model"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

// DatasetsStore implements store.DatasetsStore on Postgres.
type DatasetsStore struct {
	db  *gorm.DB
	ent entityAccessors
}

var _ store.DatasetsStore = (*DatasetsStore)(nil)

func NewDatasetsStore(db *gorm.DB) *DatasetsStore {
	return &DatasetsStore{
		db: db,
		ent: entityAccessors{
			table:      "datasets",
			entityType: model.EntityTypeDataset,
		},
	}
}

type datasetRow struct {
	ID          string
	Name        string
	Description string
	Owner       string
	Workspace   string
	Visibility  string
	DatasetType string
	DateCreated int64
	DateUpdated int64
}

const datasetColumns = "id, name, description, owner, workspace, visibility, dataset_type, date_created, date_updated"

func (s *DatasetsStore) load(tx *gorm.DB, id string) (*store.Dataset, error) {
	var row datasetRow
	result := tx.Raw(
		"SELECT "+datasetColumns+" FROM datasets WHERE id = ? AND deleted = false",
		id,
	).Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if row.ID == "" {
		return nil, errs.NotFound("dataset %s not found", id)
	}
	return s.decorate(tx, row)
}

func (s *DatasetsStore) decorate(tx *gorm.DB, row datasetRow) (*store.Dataset, error) {
	tags, err := s.ent.fetchTags(tx, row.ID)
	if err != nil {
		return nil, err
	}
	attrs, err := s.ent.fetchAttributes(tx, row.ID, nil, true)
	if err != nil {
		return nil, err
	}
	return &store.Dataset{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Owner:       row.Owner,
		Workspace:   row.Workspace,
		Visibility:  row.Visibility,
		DatasetType: row.DatasetType,
		Tags:        tags,
		Attributes:  attrs,
		DateCreated: row.DateCreated,
		DateUpdated: row.DateUpdated,
	}, nil
}

func (s *DatasetsStore) mutate(ctx context.Context, id string, fn func(tx *gorm.DB) error) (*store.Dataset, error) {
	var out *store.Dataset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ent.lockLive(tx, id); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		if err := s.ent.bumpUpdated(tx, id, nowMillis()); err != nil {
			return err
		}
		d, err := s.load(tx, id)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DatasetsStore) Insert(ctx context.Context, d store.Dataset) (*store.Dataset, error) {
	if d.ID != "" {
		return nil, errs.InvalidArgument("dataset id must not be set on insert")
	}
	if d.Name == "" {
		return nil, errs.InvalidArgument("dataset name must not be empty")
	}
	for _, tag := range d.Tags {
		if !query.ValidTag(tag) {
			return nil, errs.InvalidArgument("invalid tag %q", tag)
		}
	}
	for _, kv := range d.Attributes {
		if err := checkAttribute(kv); err != nil {
			return nil, err
		}
	}
	if d.Visibility == "" {
		d.Visibility = model.VisibilityPrivate
	}

	d.ID = uuid.NewString()
	now := nowMillis()
	d.DateCreated = now
	d.DateUpdated = now

	var out *store.Dataset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conflict string
		result := tx.Raw(
			"SELECT id FROM datasets WHERE name = ? AND workspace = ? AND deleted = false",
			d.Name, d.Workspace,
		).Scan(&conflict)
		if result.Error != nil {
			return result.Error
		}
		if conflict != "" {
			return errs.AlreadyExists("dataset %q already exists in workspace %q", d.Name, d.Workspace)
		}

		err := tx.Exec(
			`INSERT INTO datasets (id, name, description, owner, workspace, visibility, dataset_type, date_created, date_updated, deleted)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, false)`,
			d.ID, d.Name, d.Description, d.Owner, d.Workspace, d.Visibility, d.DatasetType,
			d.DateCreated, d.DateUpdated,
		).Error
		if err != nil {
			return err
		}
		if len(d.Tags) > 0 {
			if err := s.ent.insertTags(tx, d.ID, d.Tags); err != nil {
				return err
			}
		}
		if len(d.Attributes) > 0 {
			if err := s.ent.insertAttributes(tx, d.ID, d.Attributes); err != nil {
				return err
			}
		}
		loaded, err := s.load(tx, d.ID)
		if err != nil {
			return err
		}
		out = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DatasetsStore) GetByID(ctx context.Context, id string) (*store.Dataset, error) {
	var out *store.Dataset
	err := withRetry(ctx, func() error {
		d, err := s.load(s.db.WithContext(ctx), id)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DatasetsStore) GetByIDs(ctx context.Context, ids []string) ([]store.Dataset, error) {
	if len(ids) == 0 {
		return []store.Dataset{}, nil
	}
	db := s.db.WithContext(ctx)
	var rows []datasetRow
	result := db.Raw(
		"SELECT "+datasetColumns+" FROM datasets WHERE id IN ? AND deleted = false ORDER BY id",
		ids,
	).Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	datasets := make([]store.Dataset, 0, len(rows))
	for _, row := range rows {
		d, err := s.decorate(db, row)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, *d)
	}
	return datasets, nil
}

func (s *DatasetsStore) Find(ctx context.Context, req store.FindRequest) (*store.DatasetPage, error) {
	if err := req.Page.Validate(); err != nil {
		return nil, err
	}
	sort := req.Sort
	if sort.Column == "" {
		sort = query.Sort{Column: query.DefaultSortColumn}
	}

	where, args, empty := buildWhere("datasets", model.EntityTypeDataset, req.Predicate, req.Scope)
	if empty {
		return &store.DatasetPage{Datasets: []store.Dataset{}, TotalRecords: 0}, nil
	}

	var page *store.DatasetPage
	err := withRetry(ctx, func() error {
		db := s.db.WithContext(ctx)

		var total int64
		result := db.Raw("SELECT count(*) FROM datasets WHERE "+where, args...).Scan(&total)
		if result.Error != nil {
			return result.Error
		}

		sql := fmt.Sprintf("SELECT %s FROM datasets WHERE %s ORDER BY %s",
			datasetColumns, where, orderBy("datasets", sort))
		rowArgs := args
		if !req.Page.Unpaged() {
			limit, offset := req.Page.Window()
			sql += " LIMIT ? OFFSET ?"
			rowArgs = append(append([]interface{}{}, args...), limit, offset)
		}

		var rows []datasetRow
		if result := db.Raw(sql, rowArgs...).Scan(&rows); result.Error != nil {
			return result.Error
		}

		datasets := make([]store.Dataset, 0, len(rows))
		for _, row := range rows {
			d, err := s.decorate(db, row)
			if err != nil {
				return err
			}
			datasets = append(datasets, *d)
		}
		page = &store.DatasetPage{Datasets: datasets, TotalRecords: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *DatasetsStore) Delete(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	var live []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Raw(
			"SELECT id FROM datasets WHERE id IN ? AND deleted = false ORDER BY id FOR UPDATE",
			ids,
		).Scan(&live)
		if result.Error != nil {
			return result.Error
		}
		if len(live) == 0 {
			return nil
		}
		return tx.Exec(
			"UPDATE datasets SET deleted = true, date_updated = ? WHERE id IN ?",
			nowMillis(), live,
		).Error
	})
	if err != nil {
		return nil, err
	}
	if live == nil {
		live = []string{}
	}
	return live, nil
}

func (s *DatasetsStore) AddTags(ctx context.Context, id string, tags []string) (*store.Dataset, error) {
	for _, tag := range tags {
		if !query.ValidTag(tag) {
			return nil, errs.InvalidArgument("invalid tag %q", tag)
		}
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.insertTags(tx, id, tags)
	})
}

func (s *DatasetsStore) DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*store.Dataset, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.deleteTags(tx, id, tags, deleteAll)
	})
}

func (s *DatasetsStore) GetTags(ctx context.Context, id string) ([]string, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireLive(db, id); err != nil {
		return nil, err
	}
	return s.ent.fetchTags(db, id)
}

func (s *DatasetsStore) AddAttributes(ctx context.Context, id string, attrs []store.KeyValue) (*store.Dataset, error) {
	if len(attrs) == 0 {
		return nil, errs.InvalidArgument("attributes must not be empty")
	}
	for _, kv := range attrs {
		if err := checkAttribute(kv); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.insertAttributes(tx, id, attrs)
	})
}

func (s *DatasetsStore) UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Dataset, int64, error) {
	if err := checkAttribute(attr); err != nil {
		return nil, 0, err
	}
	var rows int64
	var out *store.Dataset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ent.lockLive(tx, id); err != nil {
			return err
		}
		affected, err := s.ent.upsertAttribute(tx, id, attr)
		if err != nil {
			return err
		}
		rows = affected
		if rows > 0 {
			if err := s.ent.bumpUpdated(tx, id, nowMillis()); err != nil {
				return err
			}
		}
		d, err := s.load(tx, id)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, rows, nil
}

func (s *DatasetsStore) DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*store.Dataset, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.deleteAttributes(tx, id, keys, deleteAll)
	})
}

func (s *DatasetsStore) GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]store.KeyValue, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireLive(db, id); err != nil {
		return nil, err
	}
	return s.ent.fetchAttributes(db, id, keys, getAll)
}

func (s *DatasetsStore) UpdateName(ctx context.Context, id, name string) (*store.Dataset, error) {
	if name == "" {
		return nil, errs.InvalidArgument("dataset name must not be empty")
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		var conflict string
		result := tx.Raw(
			`SELECT d.id FROM datasets d
			 WHERE d.name = ? AND d.deleted = false AND d.id <> ?
			   AND d.workspace = (SELECT workspace FROM datasets WHERE id = ?)`,
			name, id, id,
		).Scan(&conflict)
		if result.Error != nil {
			return result.Error
		}
		if conflict != "" {
			return errs.AlreadyExists("dataset %q already exists in workspace", name)
		}
		return tx.Exec("UPDATE datasets SET name = ? WHERE id = ?", name, id).Error
	})
}

func (s *DatasetsStore) UpdateDescription(ctx context.Context, id, description string) (*store.Dataset, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE datasets SET description = ? WHERE id = ?", description, id).Error
	})
}

func (s *DatasetsStore) OwnersByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	owners := map[string]string{}
	if len(ids) == 0 {
		return owners, nil
	}
	var rows []ownerRow
	result := s.db.WithContext(ctx).Raw(
		"SELECT id, owner FROM datasets WHERE id IN ? AND deleted = false",
		ids,
	).Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	for _, row := range rows {
		owners[row.ID] = row.Owner
	}
	return owners, nil
}

func (s *DatasetsStore) WorkspaceIDs(ctx context.Context, workspace string) ([]string, error) {
	var ids []string
	result := s.db.WithContext(ctx).Raw(
		"SELECT id FROM datasets WHERE workspace = ? AND deleted = false ORDER BY id",
		workspace,
	).Scan(&ids)
	if result.Error != nil {
		return nil, result.Error
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *DatasetsStore) Exists(ctx context.Context, id string) (bool, error) {
	var found string
	result := s.db.WithContext(ctx).Raw(
		"SELECT id FROM datasets WHERE id = ? AND deleted = false",
		id,
	).Scan(&found)
	if result.Error != nil {
		return false, result.Error
	}
	return found != "", nil
}

// OwnedIDs implements authz.VisibilityLister.
func (s *DatasetsStore) OwnedIDs(ctx context.Context, _ authz.ResourceType, ownerID, workspace string) ([]string, error) {
	sql := "SELECT id FROM datasets WHERE owner = ? AND deleted = false"
	args := []interface{}{ownerID}
	if workspace != "" {
		sql += " AND workspace = ?"
		args = append(args, workspace)
	}
	var ids []string
	result := s.db.WithContext(ctx).Raw(sql+" ORDER BY id", args...).Scan(&ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// PublicIDs implements authz.VisibilityLister.
func (s *DatasetsStore) PublicIDs(ctx context.Context, _ authz.ResourceType, workspace string) ([]string, error) {
	sql := "SELECT id FROM datasets WHERE visibility = ? AND deleted = false"
	args := []interface{}{model.VisibilityPublic}
	if workspace != "" {
		sql += " AND workspace = ?"
		args = append(args, workspace)
	}
	var ids []string
	result := s.db.WithContext(ctx).Raw(sql+" ORDER BY id", args...).Scan(&ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

func (s *DatasetsStore) requireLive(db *gorm.DB, id string) error {
	var found string
	result := db.Raw("SELECT id FROM datasets WHERE id = ? AND deleted = false", id).Scan(&found)
	if result.Error != nil {
		return result.Error
	}
	if found == "" {
		return errs.NotFound("dataset %s not found", id)
	}
	return nil
}
