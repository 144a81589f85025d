package endpoints

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zulily/modeldb/pkg/catalog"
	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/identity"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/server"
	"github.com/zulily/modeldb/pkg/server/middleware"
	"github.com/zulily/modeldb/pkg/store"
)

var testSigningKey = []byte("endpoint-test-key")

// MockProjects implements server.ProjectsService for testing using
// testify/mock. The embedded interface panics on methods a test did
// not stub, which no test should reach.
type MockProjects struct {
	mock.Mock
	server.ProjectsService
}

func (m *MockProjects) Find(ctx context.Context, req catalog.FindProjectsRequest) (*store.ProjectPage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ProjectPage), args.Error(1)
}

func (m *MockProjects) GetMany(ctx context.Context, ids []string) ([]store.Project, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Project), args.Error(1)
}

func (m *MockProjects) FindByKeyValue(ctx context.Context, key string, value interface{}, valueType query.ValueType) (*store.ProjectPage, error) {
	args := m.Called(ctx, key, value, valueType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ProjectPage), args.Error(1)
}

func (m *MockProjects) Create(ctx context.Context, p store.Project) (*store.Project, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

func (m *MockProjects) Get(ctx context.Context, id string) (*store.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

func (m *MockProjects) Delete(ctx context.Context, ids []string) ([]string, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProjects) AddTags(ctx context.Context, id string, tags []string) (*store.Project, error) {
	args := m.Called(ctx, id, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

func (m *MockProjects) UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Project, int64, error) {
	args := m.Called(ctx, id, attr)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*store.Project), args.Get(1).(int64), args.Error(2)
}

func (m *MockProjects) DeleteArtifact(ctx context.Context, id, key string) (*store.Project, error) {
	args := m.Called(ctx, id, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

func (m *MockProjects) DeepCopy(ctx context.Context, sourceID, workspace string) (*store.Project, error) {
	args := m.Called(ctx, sourceID, workspace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

// MockDatasets implements server.DatasetsService for testing.
type MockDatasets struct {
	mock.Mock
	server.DatasetsService
}

func (m *MockDatasets) Find(ctx context.Context, req catalog.FindDatasetsRequest) (*store.DatasetPage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.DatasetPage), args.Error(1)
}

func (m *MockDatasets) GetMany(ctx context.Context, ids []string) ([]store.Dataset, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Dataset), args.Error(1)
}

func (m *MockDatasets) UpdateName(ctx context.Context, id, name string) (*store.Dataset, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Dataset), args.Error(1)
}

// newTestServer builds a server around mock services with all
// endpoints registered.
func newTestServer(projects server.ProjectsService, datasets server.DatasetsService) *server.Server {
	cfg := &config.CatalogConfig{PageLimitMax: 100}
	auth := middleware.NewTokenAuthenticator(testSigningKey, cfg)
	s := server.NewServer(projects, datasets, auth, cfg, nil, "127.0.0.1", "0")
	RegisterAll(s)
	return s
}

func bearerToken(caller *identity.Identity) string {
	auth := middleware.NewTokenAuthenticator(testSigningKey, nil)
	token, err := auth.IssueToken(caller, time.Minute)
	if err != nil {
		panic(err)
	}
	return "Bearer " + token
}
