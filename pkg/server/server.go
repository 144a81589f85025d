package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/catalog"
	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/identity"
	"github.com/zulily/modeldb/pkg/query"
	"github.com/zulily/modeldb/pkg/server/middleware"
	"github.com/zulily/modeldb/pkg/store"
	gormstore "github.com/zulily/modeldb/pkg/store/gorm"
)

// ProjectsService is the project surface the endpoints call. It is
// satisfied by *catalog.Projects.
type ProjectsService interface {
	Find(ctx context.Context, req catalog.FindProjectsRequest) (*store.ProjectPage, error)
	GetMany(ctx context.Context, ids []string) ([]store.Project, error)
	FindByKeyValue(ctx context.Context, key string, value interface{}, valueType query.ValueType) (*store.ProjectPage, error)
	Create(ctx context.Context, p store.Project) (*store.Project, error)
	Get(ctx context.Context, id string) (*store.Project, error)
	Delete(ctx context.Context, ids []string) ([]string, error)
	AddTags(ctx context.Context, id string, tags []string) (*store.Project, error)
	DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*store.Project, error)
	GetTags(ctx context.Context, id string) ([]string, error)
	AddAttributes(ctx context.Context, id string, attrs []store.KeyValue) (*store.Project, error)
	UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Project, int64, error)
	DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*store.Project, error)
	GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]store.KeyValue, error)
	UpdateDescription(ctx context.Context, id, description string) (*store.Project, error)
	UpdateReadme(ctx context.Context, id, readme string) (*store.Project, error)
	Readme(ctx context.Context, id string) (markdown, html string, err error)
	SetShortName(ctx context.Context, id, shortName string) (*store.Project, error)
	LogCodeVersion(ctx context.Context, id, codeVersion string) (*store.Project, error)
	LogArtifacts(ctx context.Context, id string, artifacts []store.Artifact) (*store.Project, error)
	GetArtifacts(ctx context.Context, id string) ([]store.Artifact, error)
	DeleteArtifact(ctx context.Context, id, key string) (*store.Project, error)
	DeepCopy(ctx context.Context, sourceID, workspace string) (*store.Project, error)
	ExperimentCount(ctx context.Context, projectIDs []string) (int64, error)
	ExperimentRunCount(ctx context.Context, projectIDs []string) (int64, error)
	WorkspaceIDs(ctx context.Context, workspace string) ([]string, error)
}

// DatasetsService is the dataset surface the endpoints call. It is
// satisfied by *catalog.Datasets.
type DatasetsService interface {
	Find(ctx context.Context, req catalog.FindDatasetsRequest) (*store.DatasetPage, error)
	GetMany(ctx context.Context, ids []string) ([]store.Dataset, error)
	FindByKeyValue(ctx context.Context, key string, value interface{}, valueType query.ValueType) (*store.DatasetPage, error)
	Create(ctx context.Context, d store.Dataset) (*store.Dataset, error)
	Get(ctx context.Context, id string) (*store.Dataset, error)
	Delete(ctx context.Context, ids []string) ([]string, error)
	AddTags(ctx context.Context, id string, tags []string) (*store.Dataset, error)
	DeleteTags(ctx context.Context, id string, tags []string, deleteAll bool) (*store.Dataset, error)
	GetTags(ctx context.Context, id string) ([]string, error)
	AddAttributes(ctx context.Context, id string, attrs []store.KeyValue) (*store.Dataset, error)
	UpdateAttribute(ctx context.Context, id string, attr store.KeyValue) (*store.Dataset, int64, error)
	DeleteAttributes(ctx context.Context, id string, keys []string, deleteAll bool) (*store.Dataset, error)
	GetAttributes(ctx context.Context, id string, keys []string, getAll bool) ([]store.KeyValue, error)
	UpdateName(ctx context.Context, id, name string) (*store.Dataset, error)
	UpdateDescription(ctx context.Context, id, description string) (*store.Dataset, error)
	WorkspaceIDs(ctx context.Context, workspace string) ([]string, error)
}

var (
	_ ProjectsService = (*catalog.Projects)(nil)
	_ DatasetsService = (*catalog.Datasets)(nil)
)

type Server struct {
	Projects ProjectsService
	Datasets DatasetsService
	Auth     *middleware.TokenAuthenticator
	Config   *config.CatalogConfig
	Router   *mux.Router
	DB       *gorm.DB
	srv      *http.Server
}

func NewServer(
	projects ProjectsService,
	datasets DatasetsService,
	auth *middleware.TokenAuthenticator,
	cfg *config.CatalogConfig,
	db *gorm.DB,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Projects: projects,
		Datasets: datasets,
		Auth:     auth,
		Config:   cfg,
		Router:   router,
		DB:       db,
		srv:      srv,
	}
}

// NewFromDB wires the catalog services over a database connection.
func NewFromDB(db *gorm.DB, cfg *config.CatalogConfig, signingKey []byte, host, port string) *Server {
	projectsStore := gormstore.NewProjectsStore(db).WithCopyChunkSize(cfg.DeepCopyChunkSize)
	datasetsStore := gormstore.NewDatasetsStore(db)
	access := authz.NewHTTPAccessClient(cfg.AuthzURL, cfg.AuthzCallTimeout())
	auth := middleware.NewTokenAuthenticator(signingKey, cfg)
	return NewServer(
		catalog.NewProjects(projectsStore, authz.NewResolver(access, projectsStore, cfg.AuthzCallTimeout()).WithPublicRead(cfg.PublicReadEnabled)),
		catalog.NewDatasets(datasetsStore, authz.NewResolver(access, datasetsStore, cfg.AuthzCallTimeout()).WithPublicRead(cfg.PublicReadEnabled)),
		auth,
		cfg,
		db,
		host,
		port,
	)
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// CallerWorkspace returns the workspace a request applies to when the
// query names none.
func CallerWorkspace(ctx context.Context) string {
	caller, _ := identity.Get(ctx)
	return caller.DefaultWorkspace()
}
