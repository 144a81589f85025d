package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/store"
)

type MockDatasetsStore struct {
	mock.Mock
	store.DatasetsStore
}

func (m *MockDatasetsStore) Insert(ctx context.Context, d store.Dataset) (*store.Dataset, error) {
	args := m.Called(d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Dataset), args.Error(1)
}

func (m *MockDatasetsStore) Find(ctx context.Context, req store.FindRequest) (*store.DatasetPage, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.DatasetPage), args.Error(1)
}

func (m *MockDatasetsStore) OwnersByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	args := m.Called(ids)
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockDatasetsStore) UpdateName(ctx context.Context, id, name string) (*store.Dataset, error) {
	args := m.Called(id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Dataset), args.Error(1)
}

func TestDatasetFindFailClosedOnResolverError(t *testing.T) {
	st := new(MockDatasetsStore)
	az := new(MockAuthorizer)
	az.On("Resolve", authz.ActionRead, authz.ResourceTypeDataset, "").
		Return(authz.Scope{}, errs.Unavailable(nil, "collaborator down"))

	svc := NewDatasets(st, az)
	_, err := svc.Find(aliceCtx(), FindDatasetsRequest{})
	assert.True(t, errs.IsKind(err, errs.KindUnavailable))
	st.AssertNotCalled(t, "Find", mock.Anything)
}

func TestDatasetUpdateNameAuthorizes(t *testing.T) {
	st := new(MockDatasetsStore)
	az := new(MockAuthorizer)
	st.On("OwnersByIDs", []string{"d1"}).Return(map[string]string{"d1": "u1"}, nil)
	az.On("Check", authz.ActionUpdate, authz.ResourceTypeDataset, "d1", "u1").Return(nil)
	st.On("UpdateName", "d1", "renamed").Return(&store.Dataset{ID: "d1", Name: "renamed"}, nil)

	svc := NewDatasets(st, az)
	d, err := svc.UpdateName(aliceCtx(), "d1", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", d.Name)
	az.AssertExpectations(t)
}

func TestDatasetCreateRequiresIdentity(t *testing.T) {
	svc := NewDatasets(new(MockDatasetsStore), new(MockAuthorizer))
	_, err := svc.Create(context.Background(), store.Dataset{Name: "x"})
	assert.True(t, errs.IsKind(err, errs.KindPermissionDenied))
}
