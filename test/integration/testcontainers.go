package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulily/modeldb/pkg/authz"
	"github.com/zulily/modeldb/pkg/catalog"
	"github.com/zulily/modeldb/pkg/config"
	"github.com/zulily/modeldb/pkg/server"
	"github.com/zulily/modeldb/pkg/server/endpoints"
	"github.com/zulily/modeldb/pkg/server/middleware"
	gormstore "github.com/zulily/modeldb/pkg/store/gorm"
)

var testSigningKey = []byte("integration-test-signing-key")

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	RawDB       *sql.DB
	Container   testcontainers.Container
	ServerURL   string
	DatabaseURL string
	HTTPClient  *http.Client
	Auth        *middleware.TokenAuthenticator

	apiServer   *httptest.Server
	authzServer *httptest.Server
}

// NewTestContext starts a PostgreSQL testcontainer, applies the SQL
// migrations, and runs the catalog server in-process together with a
// stub authorization collaborator that grants nothing beyond ownership.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("modeldb"),
		tcpostgres.WithUsername("modeldb"),
		tcpostgres.WithPassword("modeldb"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	rawDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyMigrations(rawDB, filepath.Join(projectRoot, "db", "migrations")); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	db, err := gorm.Open(
		gormpostgres.New(gormpostgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	authzServer := newStubAuthzServer()

	cfg := &config.CatalogConfig{
		PageLimitMax:      1000,
		AuthzURL:          authzServer.URL,
		AuthzTimeout:      5,
		PublicReadEnabled: true,
		DeepCopyChunkSize: 100,
	}

	projectsStore := gormstore.NewProjectsStore(db).WithCopyChunkSize(cfg.DeepCopyChunkSize)
	datasetsStore := gormstore.NewDatasetsStore(db)
	access := authz.NewHTTPAccessClient(cfg.AuthzURL, cfg.AuthzCallTimeout())
	auth := middleware.NewTokenAuthenticator(testSigningKey, cfg)

	s := server.NewServer(
		catalog.NewProjects(projectsStore, authz.NewResolver(access, projectsStore, cfg.AuthzCallTimeout()).WithPublicRead(cfg.PublicReadEnabled)),
		catalog.NewDatasets(datasetsStore, authz.NewResolver(access, datasetsStore, cfg.AuthzCallTimeout()).WithPublicRead(cfg.PublicReadEnabled)),
		auth,
		cfg,
		db,
		"127.0.0.1",
		"0",
	)
	endpoints.RegisterAll(s)

	apiServer := httptest.NewServer(s.Router)

	return &TestContext{
		DB:          db,
		RawDB:       rawDB,
		Container:   container,
		ServerURL:   apiServer.URL,
		DatabaseURL: databaseURL,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		Auth:        auth,
		apiServer:   apiServer,
		authzServer: authzServer,
	}, nil
}

// Close tears down all test resources.
func (tc *TestContext) Close(ctx context.Context) {
	if tc.apiServer != nil {
		tc.apiServer.Close()
	}
	if tc.authzServer != nil {
		tc.authzServer.Close()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// newStubAuthzServer answers the collaborator API with no shared grants
// and no non-ownership permissions. Ownership and admin short-circuits
// therefore decide everything in the tests.
func newStubAuthzServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accessible-ids", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string][]string{"ids": {}})
	})
	mux.HandleFunc("/v1/check-permission", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"allowed": false})
	})
	return httptest.NewServer(mux)
}

// applyMigrations runs every .up.sql file in version order.
func applyMigrations(db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(contents)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
	}
	return nil
}

// findProjectRoot walks up from the working directory to the directory
// containing go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}
