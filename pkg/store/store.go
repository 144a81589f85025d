package store

import (
	"context"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/query"
)

// KeyValue is one typed attribute. Value holds a float64 for NUMBER, a
// string for STRING, and a JSON-encoded string for BLOB.
type KeyValue struct {
	Key       string
	Value     interface{}
	ValueType query.ValueType
}

// Artifact is a named artifact reference on an entity.
type Artifact struct {
	Key          string
	Path         string
	ArtifactType string
}

// Project is the full project snapshot returned by every accessor.
type Project struct {
	ID          string
	Name        string
	ShortName   string
	Description string
	Owner       string
	Workspace   string
	Visibility  string
	ReadmeText  string
	CodeVersion string
	Tags        []string
	Attributes  []KeyValue
	Artifacts   []Artifact
	DateCreated int64
	DateUpdated int64
}

// ProjectPage is one page of projects plus the total count under the
// same predicate and scope.
type ProjectPage struct {
	Projects     []Project
	TotalRecords int64
}

// Dataset is the full dataset snapshot returned by every accessor.
type Dataset struct {
	ID          string
	Name        string
	Description string
	Owner       string
	Workspace   string
	Visibility  string
	DatasetType string
	Tags        []string
	Attributes  []KeyValue
	DateCreated int64
	DateUpdated int64
}

// DatasetPage is one page of datasets plus the total count.
type DatasetPage struct {
	Datasets     []Dataset
	TotalRecords int64
}

// FindRequest bundles the inputs of one paginated find.
type FindRequest struct {
	Predicate *query.Predicate
	Scope     authz.Scope
	Sort      query.Sort
	Page      query.Page
}

// ProjectsStore abstracts project storage operations. Mutations return
// the mutated snapshot (read-after-write) and bump date_updated.
type ProjectsStore interface {
	authz.VisibilityLister

	// Insert creates a project. The id must be unset; one is assigned.
	Insert(ctx context.Context, p Project) (*Project, error)

	// GetByID fetches a live project.
	GetByID(ctx context.Context, id string) (*Project, error)

	// GetByIDs fetches the live projects among the given ids.
	GetByIDs(ctx context.Context, ids []string) ([]Project, error)

	// Find executes a paginated find under predicate and scope.
	Find(ctx context.Context, req FindRequest) (*ProjectPage, error)

	// Delete soft-deletes the given projects, returning the ids that
	// were live before the call. Deleting a deleted project is a no-op.
	Delete(ctx context.Context, ids []string) ([]string, error)

	// AddTags unions tags into the project's ordered unique tag list.
	AddTags(ctx context.Context, id string, tags []string) (*Project, error)

	// DeleteTags removes the listed tags, or every tag when deleteAll
	// is set. deleteAll wins when both are given.
	DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*Project, error)

	// GetTags returns the project's tags in insertion order.
	GetTags(ctx context.Context, id string) ([]string, error)

	// AddAttributes adds create-once attributes; an existing key fails
	// with an already-exists error.
	AddAttributes(ctx context.Context, id string, attrs []KeyValue) (*Project, error)

	// UpdateAttribute upserts a single attribute. When the new value
	// equals the stored one the call is a no-op reported as zero rows
	// affected and date_updated is untouched.
	UpdateAttribute(ctx context.Context, id string, attr KeyValue) (*Project, int64, error)

	// DeleteAttributes removes the listed keys, or the whole map when
	// deleteAll is set.
	DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*Project, error)

	// GetAttributes returns the listed attributes, or all of them when
	// getAll is set.
	GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]KeyValue, error)

	// UpdateDescription replaces the description.
	UpdateDescription(ctx context.Context, id, description string) (*Project, error)

	// UpdateReadme replaces the readme text.
	UpdateReadme(ctx context.Context, id, readme string) (*Project, error)

	// SetShortName sets the url-safe short name, unique per owner.
	SetShortName(ctx context.Context, id, shortName string) (*Project, error)

	// LogCodeVersion records the immutable code version snapshot; a
	// second log fails with an already-exists error.
	LogCodeVersion(ctx context.Context, id, codeVersion string) (*Project, error)

	// LogArtifacts appends artifacts; duplicate keys fail with an
	// already-exists error.
	LogArtifacts(ctx context.Context, id string, artifacts []Artifact) (*Project, error)

	// GetArtifacts returns the project's artifacts.
	GetArtifacts(ctx context.Context, id string) ([]Artifact, error)

	// DeleteArtifact removes one artifact by key.
	DeleteArtifact(ctx context.Context, id, key string) (*Project, error)

	// DeepCopy copies the project and its experiments and runs for a
	// new owner, remapping parent references. Partial failures are
	// rolled back by compensating cleanup.
	DeepCopy(ctx context.Context, sourceID, newOwner, workspace string) (*Project, error)

	// ExperimentCount counts live experiments under the projects.
	ExperimentCount(ctx context.Context, projectIDs []string) (int64, error)

	// ExperimentRunCount counts live runs under the projects.
	ExperimentRunCount(ctx context.Context, projectIDs []string) (int64, error)

	// OwnersByIDs maps project id to owner id for the live projects
	// among ids.
	OwnersByIDs(ctx context.Context, ids []string) (map[string]string, error)

	// WorkspaceIDs lists live project ids in a workspace.
	WorkspaceIDs(ctx context.Context, workspace string) ([]string, error)

	// Exists reports whether a live project with the id exists.
	Exists(ctx context.Context, id string) (bool, error)
}

// DatasetsStore abstracts dataset storage operations.
type DatasetsStore interface {
	authz.VisibilityLister

	Insert(ctx context.Context, d Dataset) (*Dataset, error)
	GetByID(ctx context.Context, id string) (*Dataset, error)
	GetByIDs(ctx context.Context, ids []string) ([]Dataset, error)
	Find(ctx context.Context, req FindRequest) (*DatasetPage, error)
	Delete(ctx context.Context, ids []string) ([]string, error)

	AddTags(ctx context.Context, id string, tags []string) (*Dataset, error)
	DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*Dataset, error)
	GetTags(ctx context.Context, id string) ([]string, error)

	AddAttributes(ctx context.Context, id string, attrs []KeyValue) (*Dataset, error)
	UpdateAttribute(ctx context.Context, id string, attr KeyValue) (*Dataset, int64, error)
	DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*Dataset, error)
	GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]KeyValue, error)

	UpdateName(ctx context.Context, id, name string) (*Dataset, error)
	UpdateDescription(ctx context.Context, id, description string) (*Dataset, error)

	OwnersByIDs(ctx context.Context, ids []string) (map[string]string, error)
	WorkspaceIDs(ctx context.Context, workspace string) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
}
