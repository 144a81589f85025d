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

// Datasets is the dataset half of the catalog service.
type Datasets struct {
	store store.DatasetsStore
	authz Authorizer
}

func NewDatasets(s store.DatasetsStore, a Authorizer) *Datasets {
	return &Datasets{store: s, authz: a}
}

// FindDatasetsRequest carries the inputs of a paginated dataset find.
type FindDatasetsRequest struct {
	Filters    []query.KeyValueQuery
	SortKey    string
	Ascending  bool
	PageNumber int
	PageLimit  int
	Workspace  string
	IDs        []string
}

// Find lists the datasets visible to the caller under the request
// filters, sorted and paginated.
func (c *Datasets) Find(ctx context.Context, req FindDatasetsRequest) (*store.DatasetPage, error) {
	caller, _ := identity.Get(ctx)

	pred, err := query.Compile(query.EntityDataset, req.Filters)
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
		ResourceType: authz.ResourceTypeDataset,
		Workspace:    req.Workspace,
		Visibility:   model.VisibilityPublic,
		Hint:         req.IDs,
	})
	if err != nil {
		c.auditFind(caller, req.Workspace, 0, err)
		return nil, err
	}

	if !scope.IsUnrestricted() && scope.Empty() {
		return &store.DatasetPage{Datasets: []store.Dataset{}, TotalRecords: 0}, nil
	}

	result, err := c.store.Find(ctx, store.FindRequest{
		Predicate: pred,
		Scope:     scope,
		Sort:      query.ResolveSort(query.EntityDataset, req.SortKey, req.Ascending),
		Page:      page,
	})
	if err != nil {
		c.auditFind(caller, req.Workspace, 0, err)
		return nil, err
	}
	c.auditFind(caller, req.Workspace, result.TotalRecords, nil)
	return result, nil
}

// GetMany fetches the datasets among the given ids the caller may
// read. Unknown and invisible ids are silently omitted.
func (c *Datasets) GetMany(ctx context.Context, ids []string) ([]store.Dataset, error) {
	if len(ids) == 0 {
		return []store.Dataset{}, nil
	}
	caller, _ := identity.Get(ctx)
	scope, err := c.authz.Resolve(ctx, authz.Request{
		Caller:       caller,
		Action:       authz.ActionRead,
		ResourceType: authz.ResourceTypeDataset,
		Visibility:   model.VisibilityPublic,
		Hint:         ids,
	})
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []store.Dataset{}, nil
	}
	visible := ids
	if !scope.IsUnrestricted() {
		visible = scope.IDs()
	}
	return c.store.GetByIDs(ctx, visible)
}

// FindByKeyValue looks up datasets matching a single equality clause
// under the caller's read scope.
func (c *Datasets) FindByKeyValue(ctx context.Context, key string, value interface{}, valueType query.ValueType) (*store.DatasetPage, error) {
	return c.Find(ctx, FindDatasetsRequest{
		Filters: []query.KeyValueQuery{{
			Key:       key,
			Operator:  query.OperatorEQ,
			ValueType: valueType,
			Value:     value,
		}},
	})
}

// Create inserts a dataset owned by the caller.
func (c *Datasets) Create(ctx context.Context, d store.Dataset) (*store.Dataset, error) {
	caller, _ := identity.Get(ctx)
	if caller.Anonymous() {
		return nil, errs.PermissionDenied("anonymous callers may not create datasets")
	}
	d.Owner = caller.UserID
	if d.Workspace == "" {
		d.Workspace = caller.DefaultWorkspace()
	}

	created, err := c.store.Insert(ctx, d)
	event := audit.CreateEvent{
		UserID:     callerID(caller),
		ClientIP:   callerIP(caller),
		EntityType: model.EntityTypeDataset,
		Name:       d.Name,
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

// Get fetches one dataset; public datasets are readable by anyone while
// public read is enabled.
func (c *Datasets) Get(ctx context.Context, id string) (*store.Dataset, error) {
	caller, _ := identity.Get(ctx)
	d, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Visibility == model.VisibilityPublic && c.authz.PublicReadAllowed() {
		return d, nil
	}
	if err := c.authz.Check(ctx, caller, authz.ActionRead, authz.ResourceTypeDataset, id, d.Owner); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete soft-deletes the datasets the caller may delete.
func (c *Datasets) Delete(ctx context.Context, ids []string) ([]string, error) {
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
		if err := c.authz.Check(ctx, caller, authz.ActionDelete, authz.ResourceTypeDataset, id, owner); err != nil {
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

// AddTags unions tags into a dataset.
func (c *Datasets) AddTags(ctx context.Context, id string, tags []string) (*store.Dataset, error) {
	return c.update(ctx, id, "add-tags", func() (*store.Dataset, error) {
		return c.store.AddTags(ctx, id, tags)
	})
}

// DeleteTags removes tags from a dataset; deleteAll wins over the list.
func (c *Datasets) DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*store.Dataset, error) {
	return c.update(ctx, id, "delete-tags", func() (*store.Dataset, error) {
		return c.store.DeleteTags(ctx, id, tags, deleteAll)
	})
}

// GetTags returns a dataset's tags in insertion order.
func (c *Datasets) GetTags(ctx context.Context, id string) ([]string, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetTags(ctx, id)
}

// AddAttributes adds create-once attributes to a dataset.
func (c *Datasets) AddAttributes(ctx context.Context, id string, attrs []store.KeyValue) (*store.Dataset, error) {
	return c.update(ctx, id, "add-attributes", func() (*store.Dataset, error) {
		return c.store.AddAttributes(ctx, id, attrs)
	})
}

// UpdateAttribute upserts one attribute on a dataset.
func (c *Datasets) UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Dataset, int64, error) {
	caller, _ := identity.Get(ctx)
	if err := c.authorize(ctx, caller, authz.ActionUpdate, id); err != nil {
		return nil, 0, err
	}
	d, rows, err := c.store.UpdateAttribute(ctx, id, attr)
	c.auditUpdate(caller, id, "update-attribute", err)
	return d, rows, err
}

// DeleteAttributes removes attribute keys; deleteAll wins over the list.
func (c *Datasets) DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*store.Dataset, error) {
	return c.update(ctx, id, "delete-attributes", func() (*store.Dataset, error) {
		return c.store.DeleteAttributes(ctx, id, keys, deleteAll)
	})
}

// GetAttributes returns the selected attributes, or all of them.
func (c *Datasets) GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]store.KeyValue, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	return c.store.GetAttributes(ctx, id, keys, getAll)
}

// UpdateName renames a dataset.
func (c *Datasets) UpdateName(ctx context.Context, id, name string) (*store.Dataset, error) {
	return c.update(ctx, id, "update-name", func() (*store.Dataset, error) {
		return c.store.UpdateName(ctx, id, name)
	})
}

// UpdateDescription replaces the dataset description.
func (c *Datasets) UpdateDescription(ctx context.Context, id, description string) (*store.Dataset, error) {
	return c.update(ctx, id, "update-description", func() (*store.Dataset, error) {
		return c.store.UpdateDescription(ctx, id, description)
	})
}

// WorkspaceIDs lists the live dataset ids in a workspace.
func (c *Datasets) WorkspaceIDs(ctx context.Context, workspace string) ([]string, error) {
	return c.store.WorkspaceIDs(ctx, workspace)
}

// Exists reports whether a live dataset exists.
func (c *Datasets) Exists(ctx context.Context, id string) (bool, error) {
	return c.store.Exists(ctx, id)
}

func (c *Datasets) update(ctx context.Context, id, operation string, fn func() (*store.Dataset, error)) (*store.Dataset, error) {
	caller, _ := identity.Get(ctx)
	if err := c.authorize(ctx, caller, authz.ActionUpdate, id); err != nil {
		return nil, err
	}
	d, err := fn()
	c.auditUpdate(caller, id, operation, err)
	return d, err
}

func (c *Datasets) authorize(ctx context.Context, caller *identity.Identity, action authz.Action, id string) error {
	owners, err := c.store.OwnersByIDs(ctx, []string{id})
	if err != nil {
		return err
	}
	owner, ok := owners[id]
	if !ok {
		return errs.NotFound("dataset %s not found", id)
	}
	return c.authz.Check(ctx, caller, action, authz.ResourceTypeDataset, id, owner)
}

func (c *Datasets) auditFind(caller *identity.Identity, workspace string, total int64, err error) {
	event := audit.FindEvent{
		UserID:       callerID(caller),
		ClientIP:     callerIP(caller),
		EntityType:   model.EntityTypeDataset,
		Workspace:    workspace,
		TotalRecords: total,
		Success:      err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func (c *Datasets) auditUpdate(caller *identity.Identity, id, operation string, err error) {
	event := audit.UpdateEvent{
		UserID:     callerID(caller),
		ClientIP:   callerIP(caller),
		EntityType: model.EntityTypeDataset,
		EntityID:   id,
		Operation:  operation,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func (c *Datasets) auditDelete(caller *identity.Identity, ids []string, err error) {
	event := audit.DeleteEvent{
		UserID:     callerID(caller),
		ClientIP:   callerIP(caller),
		EntityType: model.EntityTypeDataset,
		EntityIDs:  ids,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}
