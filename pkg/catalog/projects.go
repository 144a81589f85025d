package catalog

import (
	"context"

	"github.com/zulily/modeldb/pkg/audit"
	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/identity"
	"github.com/zulily/modeldb/pkg/model"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/store"
)

// Authorizer resolves multi-entity scopes and checks single-entity
// access. *authz.Resolver satisfies it.
type Authorizer interface {
	Resolve(ctx context.Context, req authz.Request) (authz.Scope, error)
	Check(ctx context.Context, caller *identity.Identity, action authz.Action, resourceType authz.ResourceType, resourceID, ownerID string) error
	PublicReadAllowed() bool
}

// Projects is the project half of the catalog service.
type Projects struct {
	store store.ProjectsStore
	authz Authorizer
}

func NewProjects(s store.ProjectsStore, a Authorizer) *Projects {
	return &Projects{store: s, authz: a}
}

func callerID(caller *identity.Identity) string {
	if caller == nil {
		return ""
	}
	return caller.UserID
}

func callerIP(caller *identity.Identity) string {
	if caller == nil || caller.RemoteIP == nil {
		return ""
	}
	return caller.RemoteIP.String()
}

// FindProjectsRequest carries the inputs of a paginated project find.
type FindProjectsRequest struct {
	Filters    []query.KeyValueQuery
	SortKey    string
	Ascending  bool
	PageNumber int
	PageLimit  int
	Workspace  string

	// IDs optionally narrows the find to a caller-supplied id list; the
	// resolved scope still bounds what comes back.
	IDs []string
}

// Find lists the projects visible to the caller under the request
// filters, sorted and paginated.
func (c *Projects) Find(ctx context.Context, req FindProjectsRequest) (*store.ProjectPage, error) {
	caller, _ := identity.Get(ctx)

	pred, err := query.Compile(query.EntityProject, req.Filters)
	if err != nil {
		return nil, err
	}
	page := query.Page{PageNumber: req.PageNumber, PageLimit: req.PageLimit}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	scope, err := c.authz.Resolve(ctx, authz.Request{
		Caller:       caller,
		Action:       authz.ActionRead,
		ResourceType: authz.ResourceTypeProject,
		Workspace:    req.Workspace,
		Visibility:   model.VisibilityPublic,
		Hint:         req.IDs,
	})
	if err != nil {
		c.auditFind(caller, req.Workspace, 0, err)
		return nil, err
	}

	// Nothing visible: answer without touching the store.
	if !scope.IsUnrestricted() && scope.Empty() {
		return &store.ProjectPage{Projects: []store.Project{}, TotalRecords: 0}, nil
	}

	result, err := c.store.Find(ctx, store.FindRequest{
		Predicate: pred,
		Scope:     scope,
		Sort:      query.ResolveSort(query.EntityProject, req.SortKey, req.Ascending),
		Page:      page,
	})
	if err != nil {
		c.auditFind(caller, req.Workspace, 0, err)
		return nil, err
	}
	c.auditFind(caller, req.Workspace, result.TotalRecords, nil)
	return result, nil
}

// GetMany fetches the projects among the given ids the caller may
// read. Unknown and invisible ids are silently omitted.
func (c *Projects) GetMany(ctx context.Context, ids []string) ([]store.Project, error) {
	if len(ids) == 0 {
		return []store.Project{}, nil
	}
	caller, _ := identity.Get(ctx)
	scope, err := c.authz.Resolve(ctx, authz.Request{
		Caller:       caller,
		Action:       authz.ActionRead,
		ResourceType: authz.ResourceTypeProject,
		Visibility:   model.VisibilityPublic,
		Hint:         ids,
	})
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []store.Project{}, nil
	}
	visible := ids
	if !scope.IsUnrestricted() {
		visible = scope.IDs()
	}
	return c.store.GetByIDs(ctx, visible)
}

// FindByKeyValue looks up projects matching a single equality clause
// under the caller's read scope.
func (c *Projects) FindByKeyValue(ctx context.Context, key string, value interface{}, valueType query.ValueType) (*store.ProjectPage, error) {
	return c.Find(ctx, FindProjectsRequest{
		Filters: []query.KeyValueQuery{{
			Key:       key,
			Operator:  query.OperatorEQ,
			ValueType: valueType,
			Value:     value,
		}},
	})
}

// Create inserts a project owned by the caller.
func (c *Projects) Create(ctx context.Context, p store.Project) (*store.Project, error) {
	caller, _ := identity.Get(ctx)
	if caller.Anonymous() {
		return nil, errs.PermissionDenied("anonymous callers may not create projects")
	}
	p.Owner = caller.UserID
	if p.Workspace == "" {
		p.Workspace = caller.DefaultWorkspace()
	}

	created, err := c.store.Insert(ctx, p)
	event := audit.CreateEvent{
		UserID:     callerID(caller),
		ClientIP:   callerIP(caller),
		EntityType: model.EntityTypeProject,
		Name:       p.Name,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	} else {
		event.EntityID = created.ID
	}
	audit.Log(event)
	return created, err
}

// Get fetches one project. Public projects are readable by anyone while
// public read is enabled; everything else goes through the access check.
func (c *Projects) Get(ctx context.Context, id string) (*store.Project, error) {
	caller, _ := identity.Get(ctx)
	p, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Visibility == model.VisibilityPublic && c.authz.PublicReadAllowed() {
		return p, nil
	}
	if err := c.authz.Check(ctx, caller, authz.ActionRead, authz.ResourceTypeProject, id, p.Owner); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes the projects the caller may delete. Unknown and
// already-deleted ids are skipped; a denied id fails the whole call.
func (c *Projects) Delete(ctx context.Context, ids []string) ([]string, error) {
	caller, _ := identity.Get(ctx)

	owners, err := c.store.OwnersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	live := make([]string, 0, len(owners))
	for _, id := range ids {
		owner, ok := owners[id]
		if !ok {
			continue
		}
		if err := c.authz.Check(ctx, caller, authz.ActionDelete, authz.ResourceTypeProject, id, owner); err != nil {
			c.auditDelete(caller, ids, err)
			return nil, err
		}
		live = append(live, id)
	}
	if len(live) == 0 {
		return []string{}, nil
	}

	deleted, err := c.store.Delete(ctx, live)
	c.auditDelete(caller, deleted, err)
	return deleted, err
}

// AddTags unions tags into a project.
func (c *Projects) AddTags(ctx context.Context, id string, tags []string) (*store.Project, error) {
	return c.update(ctx, id, "add-tags", func() (*store.Project, error) {
		return c.store.AddTags(ctx, id, tags)
	})
}

// DeleteTags removes tags from a project; deleteAll wins over the list.
func (c *Projects) DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*store.Project, error) {
	return c.update(ctx, id, "delete-tags", func() (*store.Project, error) {
		return c.store.DeleteTags(ctx, id, tags, deleteAll)
	})
}

// GetTags returns a project's tags in insertion order.
func (c *Projects) GetTags(ctx context.Context, id string) ([]string, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetTags(ctx, id)
}

// AddAttributes adds create-once attributes to a project.
func (c *Projects) AddAttributes(ctx context.Context, id string, attrs []store.KeyValue) (*store.Project, error) {
	return c.update(ctx, id, "add-attributes", func() (*store.Project, error) {
		return c.store.AddAttributes(ctx, id, attrs)
	})
}

// UpdateAttribute upserts one attribute. A same-value update is a no-op
// reported through the rowsAffected return.
func (c *Projects) UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Project, int64, error) {
	caller, _ := identity.Get(ctx)
	if err := c.authorize(ctx, caller, authz.ActionUpdate, id); err != nil {
		return nil, 0, err
	}
	p, rows, err := c.store.UpdateAttribute(ctx, id, attr)
	c.auditUpdate(caller, id, "update-attribute", err)
	return p, rows, err
}

// DeleteAttributes removes attribute keys; deleteAll wins over the list.
func (c *Projects) DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*store.Project, error) {
	return c.update(ctx, id, "delete-attributes", func() (*store.Project, error) {
		return c.store.DeleteAttributes(ctx, id, keys, deleteAll)
	})
}

// GetAttributes returns the selected attributes, or all of them.
func (c *Projects) GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]store.KeyValue, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetAttributes(ctx, id, keys, getAll)
}

// UpdateDescription replaces the project description.
func (c *Projects) UpdateDescription(ctx context.Context, id, description string) (*store.Project, error) {
	return c.update(ctx, id, "update-description", func() (*store.Project, error) {
		return c.store.UpdateDescription(ctx, id, description)
	})
}

// UpdateReadme replaces the project readme markdown.
func (c *Projects) UpdateReadme(ctx context.Context, id, readme string) (*store.Project, error) {
	return c.update(ctx, id, "update-readme", func() (*store.Project, error) {
		return c.store.UpdateReadme(ctx, id, readme)
	})
}

// Readme returns the raw markdown and its rendered HTML.
func (c *Projects) Readme(ctx context.Context, id string) (markdown, html string, err error) {
	p, err := c.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	html, err = RenderMarkdown(p.ReadmeText)
	if err != nil {
		return "", "", errs.Internal(err, "rendering readme for project %s", id)
	}
	return p.ReadmeText, html, nil
}

// SetShortName sets the project's url-safe short name.
func (c *Projects) SetShortName(ctx context.Context, id, shortName string) (*store.Project, error) {
	return c.update(ctx, id, "set-short-name", func() (*store.Project, error) {
		return c.store.SetShortName(ctx, id, shortName)
	})
}

// LogCodeVersion records the project's immutable code version snapshot.
func (c *Projects) LogCodeVersion(ctx context.Context, id, codeVersion string) (*store.Project, error) {
	return c.update(ctx, id, "log-code-version", func() (*store.Project, error) {
		return c.store.LogCodeVersion(ctx, id, codeVersion)
	})
}

// LogArtifacts appends artifacts to a project.
func (c *Projects) LogArtifacts(ctx context.Context, id string, artifacts []store.Artifact) (*store.Project, error) {
	return c.update(ctx, id, "log-artifacts", func() (*store.Project, error) {
		return c.store.LogArtifacts(ctx, id, artifacts)
	})
}

// GetArtifacts lists a project's artifacts.
func (c *Projects) GetArtifacts(ctx context.Context, id string) ([]store.Artifact, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetArtifacts(ctx, id)
}

// DeleteArtifact removes one artifact by key.
func (c *Projects) DeleteArtifact(ctx context.Context, id, key string) (*store.Project, error) {
	return c.update(ctx, id, "delete-artifact", func() (*store.Project, error) {
		return c.store.DeleteArtifact(ctx, id, key)
	})
}

// DeepCopy clones a readable project, with its experiment tree, under
// the caller's ownership.
func (c *Projects) DeepCopy(ctx context.Context, sourceID, workspace string) (*store.Project, error) {
	caller, _ := identity.Get(ctx)
	if caller.Anonymous() {
		return nil, errs.PermissionDenied("anonymous callers may not copy projects")
	}
	if _, err := c.Get(ctx, sourceID); err != nil {
		return nil, err
	}
	if workspace == "" {
		workspace = caller.DefaultWorkspace()
	}

	clone, err := c.store.DeepCopy(ctx, sourceID, caller.UserID, workspace)
	event := audit.CopyEvent{
		UserID:   callerID(caller),
		ClientIP: callerIP(caller),
		SourceID: sourceID,
		Success:  err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	} else {
		event.CopyID = clone.ID
	}
	audit.Log(event)
	return clone, err
}

// ExperimentCount counts live experiments under the given projects.
func (c *Projects) ExperimentCount(ctx context.Context, projectIDs []string) (int64, error) {
	return c.store.ExperimentCount(ctx, projectIDs)
}

// ExperimentRunCount counts live runs under the given projects.
func (c *Projects) ExperimentRunCount(ctx context.Context, projectIDs []string) (int64, error) {
	return c.store.ExperimentRunCount(ctx, projectIDs)
}

// WorkspaceIDs lists the live project ids in a workspace.
func (c *Projects) WorkspaceIDs(ctx context.Context, workspace string) ([]string, error) {
	return c.store.WorkspaceIDs(ctx, workspace)
}

// Exists reports whether a live project exists.
func (c *Projects) Exists(ctx context.Context, id string) (bool, error) {
	return c.store.Exists(ctx, id)
}

// update is the shared mutation path: authorize, run, audit.
func (c *Projects) update(ctx context.Context, id, operation string, fn func() (*store.Project, error)) (*store.Project, error) {
	caller, _ := identity.Get(ctx)
	if err := c.authorize(ctx, caller, authz.ActionUpdate, id); err != nil {
		return nil, err
	}
	p, err := fn()
	c.auditUpdate(caller, id, operation, err)
	return p, err
}

// authorize resolves the entity owner and runs the single-entity check.
func (c *Projects) authorize(ctx context.Context, caller *identity.Identity, action authz.Action, id string) error {
	owners, err := c.store.OwnersByIDs(ctx, []string{id})
	if err != nil {
		return err
	}
	owner, ok := owners[id]
	if !ok {
		return errs.NotFound("project %s not found", id)
	}
	return c.authz.Check(ctx, caller, action, authz.ResourceTypeProject, id, owner)
}

func (c *Projects) auditFind(caller *identity.Identity, workspace string, total int64, err error) {
	event := audit.FindEvent{
		UserID:       callerID(caller),
		ClientIP:     callerIP(caller),
		EntityType:   model.EntityTypeProject,
		Workspace:    workspace,
		TotalRecords: total,
		Success:      err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func (c *Projects) auditUpdate(caller *identity.Identity, id, operation string, err error) {
	event := audit.UpdateEvent{
		UserID:     callerID(caller),
		ClientIP:   callerIP(caller),
		EntityType: model.EntityTypeProject,
		EntityID:   id,
		Operation:  operation,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func (c *Projects) auditDelete(caller *identity.Identity, ids []string, err error) {
	event := audit.DeleteEvent{
		UserID:     callerID(caller),
		ClientIP:   callerIP(caller),
		EntityType: model.EntityTypeProject,
		EntityIDs:  ids,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}
