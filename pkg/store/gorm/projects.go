package gorm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/model"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

// ProjectsStore implements store.ProjectsStore on Postgres.
type ProjectsStore struct {
	db        *gorm.DB
	ent       entityAccessors
	copyChunk int
}

var _ store.ProjectsStore = (*ProjectsStore)(nil)

func NewProjectsStore(db *gorm.DB) *ProjectsStore {
	return &ProjectsStore{
		db: db,
		ent: entityAccessors{
			table:      "projects",
			entityType: model.EntityTypeProject,
		},
		copyChunk: defaultCopyChunkSize,
	}
}

// WithCopyChunkSize overrides the per-transaction batch size used by
// DeepCopy. Values below 1 are ignored.
func (s *ProjectsStore) WithCopyChunkSize(n int) *ProjectsStore {
	if n > 0 {
		s.copyChunk = n
	}
	return s
}

var shortNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*$`)

// shortNameFor derives a url-safe short name from a project name.
func shortNameFor(name string) string {
	short := strings.ToLower(name)
	short = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, short)
	short = strings.Trim(short, "-")
	if short == "" {
		short = "project"
	}
	return short
}

type projectRow struct {
	ID          string
	Name        string
	ShortName   string
	Description string
	Owner       string
	Workspace   string
	Visibility  string
	ReadmeText  string
	CodeVersion string
	DateCreated int64
	DateUpdated int64
}

const projectColumns = "id, name, short_name, description, owner, workspace, visibility, readme_text, code_version, date_created, date_updated"

// load reads the full project snapshot, decorations included.
func (s *ProjectsStore) load(tx *gorm.DB, id string) (*store.Project, error) {
	var row projectRow
	result := tx.Raw(
		"SELECT "+projectColumns+" FROM projects WHERE id = ? AND deleted = false",
		id,
	).Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if row.ID == "" {
		return nil, errs.NotFound("project %s not found", id)
	}
	return s.decorate(tx, row)
}

func (s *ProjectsStore) decorate(tx *gorm.DB, row projectRow) (*store.Project, error) {
	tags, err := s.ent.fetchTags(tx, row.ID)
	if err != nil {
		return nil, err
	}
	attrs, err := s.ent.fetchAttributes(tx, row.ID, nil, true)
	if err != nil {
		return nil, err
	}
	artifacts, err := s.ent.fetchArtifacts(tx, row.ID)
	if err != nil {
		return nil, err
	}
	return &store.Project{
		ID:          row.ID,
		Name:        row.Name,
		ShortName:   row.ShortName,
		Description: row.Description,
		Owner:       row.Owner,
		Workspace:   row.Workspace,
		Visibility:  row.Visibility,
		ReadmeText:  row.ReadmeText,
		CodeVersion: row.CodeVersion,
		Tags:        tags,
		Attributes:  attrs,
		Artifacts:   artifacts,
		DateCreated: row.DateCreated,
		DateUpdated: row.DateUpdated,
	}, nil
}

// mutate runs fn against the locked live project row, bumps
// date_updated and returns the fresh snapshot.
func (s *ProjectsStore) mutate(ctx context.Context, id string, fn func(tx *gorm.DB) error) (*store.Project, error) {
	var out *store.Project
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
		p, err := s.load(tx, id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProjectsStore) Insert(ctx context.Context, p store.Project) (*store.Project, error) {
	if p.ID != "" {
		return nil, errs.InvalidArgument("project id must not be set on insert")
	}
	if p.Name == "" {
		return nil, errs.InvalidArgument("project name must not be empty")
	}
	for _, tag := range p.Tags {
		if !query.ValidTag(tag) {
			return nil, errs.InvalidArgument("invalid tag %q", tag)
		}
	}
	for _, kv := range p.Attributes {
		if err := checkAttribute(kv); err != nil {
			return nil, err
		}
	}
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPrivate
	}
	if p.ShortName == "" {
		p.ShortName = shortNameFor(p.Name)
	}

	p.ID = uuid.NewString()
	now := nowMillis()
	p.DateCreated = now
	p.DateUpdated = now

	var out *store.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conflict string
		result := tx.Raw(
			"SELECT id FROM projects WHERE name = ? AND workspace = ? AND deleted = false",
			p.Name, p.Workspace,
		).Scan(&conflict)
		if result.Error != nil {
			return result.Error
		}
		if conflict != "" {
			return errs.AlreadyExists("project %q already exists in workspace %q", p.Name, p.Workspace)
		}

		err := tx.Exec(
			`INSERT INTO projects (id, name, short_name, description, owner, workspace, visibility, readme_text, code_version, date_created, date_updated, deleted)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, false)`,
			p.ID, p.Name, p.ShortName, p.Description, p.Owner, p.Workspace, p.Visibility,
			p.ReadmeText, p.CodeVersion, p.DateCreated, p.DateUpdated,
		).Error
		if err != nil {
			return err
		}
		if len(p.Tags) > 0 {
			if err := s.ent.insertTags(tx, p.ID, p.Tags); err != nil {
				return err
			}
		}
		if len(p.Attributes) > 0 {
			if err := s.ent.insertAttributes(tx, p.ID, p.Attributes); err != nil {
				return err
			}
		}
		if len(p.Artifacts) > 0 {
			if err := s.ent.insertArtifacts(tx, p.ID, p.Artifacts); err != nil {
				return err
			}
		}
		loaded, err := s.load(tx, p.ID)
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

func (s *ProjectsStore) GetByID(ctx context.Context, id string) (*store.Project, error) {
	var out *store.Project
	err := withRetry(ctx, func() error {
		p, err := s.load(s.db.WithContext(ctx), id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProjectsStore) GetByIDs(ctx context.Context, ids []string) ([]store.Project, error) {
	if len(ids) == 0 {
		return []store.Project{}, nil
	}
	db := s.db.WithContext(ctx)
	var rows []projectRow
	result := db.Raw(
		"SELECT "+projectColumns+" FROM projects WHERE id IN ? AND deleted = false ORDER BY id",
		ids,
	).Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	projects := make([]store.Project, 0, len(rows))
	for _, row := range rows {
		p, err := s.decorate(db, row)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

func (s *ProjectsStore) Find(ctx context.Context, req store.FindRequest) (*store.ProjectPage, error) {
	if err := req.Page.Validate(); err != nil {
		return nil, err
	}
	sort := req.Sort
	if sort.Column == "" {
		sort = query.Sort{Column: query.DefaultSortColumn}
	}

	where, args, empty := buildWhere("projects", model.EntityTypeProject, req.Predicate, req.Scope)
	if empty {
		return &store.ProjectPage{Projects: []store.Project{}, TotalRecords: 0}, nil
	}

	var page *store.ProjectPage
	err := withRetry(ctx, func() error {
		db := s.db.WithContext(ctx)

		var total int64
		result := db.Raw("SELECT count(*) FROM projects WHERE "+where, args...).Scan(&total)
		if result.Error != nil {
			return result.Error
		}

		sql := fmt.Sprintf("SELECT %s FROM projects WHERE %s ORDER BY %s",
			projectColumns, where, orderBy("projects", sort))
		rowArgs := args
		if !req.Page.Unpaged() {
			limit, offset := req.Page.Window()
			sql += " LIMIT ? OFFSET ?"
			rowArgs = append(append([]interface{}{}, args...), limit, offset)
		}

		var rows []projectRow
		if result := db.Raw(sql, rowArgs...).Scan(&rows); result.Error != nil {
			return result.Error
		}

		projects := make([]store.Project, 0, len(rows))
		for _, row := range rows {
			p, err := s.decorate(db, row)
			if err != nil {
				return err
			}
			projects = append(projects, *p)
		}
		page = &store.ProjectPage{Projects: projects, TotalRecords: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Delete soft-deletes projects and cascades to their experiments and
// runs. Already-deleted and unknown ids are skipped.
func (s *ProjectsStore) Delete(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	var live []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Raw(
			"SELECT id FROM projects WHERE id IN ? AND deleted = false ORDER BY id FOR UPDATE",
			ids,
		).Scan(&live)
		if result.Error != nil {
			return result.Error
		}
		if len(live) == 0 {
			return nil
		}
		now := nowMillis()
		err := tx.Exec(
			"UPDATE projects SET deleted = true, date_updated = ? WHERE id IN ?",
			now, live,
		).Error
		if err != nil {
			return err
		}
		err = tx.Exec(
			"UPDATE experiments SET deleted = true, date_updated = ? WHERE project_id IN ? AND deleted = false",
			now, live,
		).Error
		if err != nil {
			return err
		}
		return tx.Exec(
			"UPDATE experiment_runs SET deleted = true, date_updated = ? WHERE project_id IN ? AND deleted = false",
			now, live,
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

func (s *ProjectsStore) AddTags(ctx context.Context, id string, tags []string) (*store.Project, error) {
	for _, tag := range tags {
		if !query.ValidTag(tag) {
			return nil, errs.InvalidArgument("invalid tag %q", tag)
		}
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.insertTags(tx, id, tags)
	})
}

func (s *ProjectsStore) DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*store.Project, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.deleteTags(tx, id, tags, deleteAll)
	})
}

func (s *ProjectsStore) GetTags(ctx context.Context, id string) ([]string, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireLive(db, id); err != nil {
		return nil, err
	}
	return s.ent.fetchTags(db, id)
}

func (s *ProjectsStore) AddAttributes(ctx context.Context, id string, attrs []store.KeyValue) (*store.Project, error) {
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

func (s *ProjectsStore) UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Project, int64, error) {
	if err := checkAttribute(attr); err != nil {
		return nil, 0, err
	}
	var rows int64
	var out *store.Project
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
		p, err := s.load(tx, id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, rows, nil
}

func (s *ProjectsStore) DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*store.Project, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.deleteAttributes(tx, id, keys, deleteAll)
	})
}

func (s *ProjectsStore) GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]store.KeyValue, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireLive(db, id); err != nil {
		return nil, err
	}
	return s.ent.fetchAttributes(db, id, keys, getAll)
}

func (s *ProjectsStore) UpdateDescription(ctx context.Context, id, description string) (*store.Project, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE projects SET description = ? WHERE id = ?", description, id).Error
	})
}

func (s *ProjectsStore) UpdateReadme(ctx context.Context, id, readme string) (*store.Project, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE projects SET readme_text = ? WHERE id = ?", readme, id).Error
	})
}

func (s *ProjectsStore) SetShortName(ctx context.Context, id, shortName string) (*store.Project, error) {
	if !shortNamePattern.MatchString(shortName) {
		return nil, errs.InvalidArgument("short name %q must be lowercase letters, digits and hyphens", shortName)
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		var conflict string
		result := tx.Raw(
			`SELECT p.id FROM projects p
			 WHERE p.short_name = ? AND p.deleted = false AND p.id <> ?
			   AND p.owner = (SELECT owner FROM projects WHERE id = ?)`,
			shortName, id, id,
		).Scan(&conflict)
		if result.Error != nil {
			return result.Error
		}
		if conflict != "" {
			return errs.AlreadyExists("short name %q already in use", shortName)
		}
		return tx.Exec("UPDATE projects SET short_name = ? WHERE id = ?", shortName, id).Error
	})
}

func (s *ProjectsStore) LogCodeVersion(ctx context.Context, id, codeVersion string) (*store.Project, error) {
	if codeVersion == "" {
		return nil, errs.InvalidArgument("code version must not be empty")
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		var current string
		result := tx.Raw("SELECT code_version FROM projects WHERE id = ?", id).Scan(&current)
		if result.Error != nil {
			return result.Error
		}
		if current != "" {
			return errs.AlreadyExists("code version already logged for project %s", id)
		}
		return tx.Exec("UPDATE projects SET code_version = ? WHERE id = ?", codeVersion, id).Error
	})
}

func (s *ProjectsStore) LogArtifacts(ctx context.Context, id string, artifacts []store.Artifact) (*store.Project, error) {
	if len(artifacts) == 0 {
		return nil, errs.InvalidArgument("artifacts must not be empty")
	}
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.insertArtifacts(tx, id, artifacts)
	})
}

func (s *ProjectsStore) GetArtifacts(ctx context.Context, id string) ([]store.Artifact, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireLive(db, id); err != nil {
		return nil, err
	}
	return s.ent.fetchArtifacts(db, id)
}

func (s *ProjectsStore) DeleteArtifact(ctx context.Context, id, key string) (*store.Project, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB) error {
		return s.ent.deleteArtifact(tx, id, key)
	})
}

func (s *ProjectsStore) ExperimentCount(ctx context.Context, projectIDs []string) (int64, error) {
	return s.countUnder(ctx, "experiments", projectIDs)
}

func (s *ProjectsStore) ExperimentRunCount(ctx context.Context, projectIDs []string) (int64, error) {
	return s.countUnder(ctx, "experiment_runs", projectIDs)
}

func (s *ProjectsStore) countUnder(ctx context.Context, table string, projectIDs []string) (int64, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}
	var count int64
	result := s.db.WithContext(ctx).Raw(
		fmt.Sprintf("SELECT count(*) FROM %s WHERE project_id IN ? AND deleted = false", table),
		projectIDs,
	).Scan(&count)
	return count, result.Error
}

type ownerRow struct {
	ID    string
	Owner string
}

func (s *ProjectsStore) OwnersByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	owners := map[string]string{}
	if len(ids) == 0 {
		return owners, nil
	}
	var rows []ownerRow
	result := s.db.WithContext(ctx).Raw(
		"SELECT id, owner FROM projects WHERE id IN ? AND deleted = false",
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

func (s *ProjectsStore) WorkspaceIDs(ctx context.Context, workspace string) ([]string, error) {
	var ids []string
	result := s.db.WithContext(ctx).Raw(
		"SELECT id FROM projects WHERE workspace = ? AND deleted = false ORDER BY id",
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

func (s *ProjectsStore) Exists(ctx context.Context, id string) (bool, error) {
	var found string
	result := s.db.WithContext(ctx).Raw(
		"SELECT id FROM projects WHERE id = ? AND deleted = false",
		id,
	).Scan(&found)
	if result.Error != nil {
		return false, result.Error
	}
	return found != "", nil
}

// OwnedIDs implements authz.VisibilityLister.
func (s *ProjectsStore) OwnedIDs(ctx context.Context, _ authz.ResourceType, ownerID, workspace string) ([]string, error) {
	sql := "SELECT id FROM projects WHERE owner = ? AND deleted = false"
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
func (s *ProjectsStore) PublicIDs(ctx context.Context, _ authz.ResourceType, workspace string) ([]string, error) {
	sql := "SELECT id FROM projects WHERE visibility = ? AND deleted = false"
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

func (s *ProjectsStore) requireLive(db *gorm.DB, id string) error {
	var found string
	result := db.Raw("SELECT id FROM projects WHERE id = ? AND deleted = false", id).Scan(&found)
	if result.Error != nil {
		return result.Error
	}
	if found == "" {
		return errs.NotFound("project %s not found", id)
	}
	return nil
}
