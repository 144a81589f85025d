package gorm

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/errs"
)

type CopySuite struct {
	suite.Suite
	DB    *gorm.DB
	mock  sqlmock.Sqlmock
	store *ProjectsStore
}

func (s *CopySuite) SetupTest() {
	var (
		db  *sql.DB
		err error
	)

	db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	s.DB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(s.T(), err)

	s.store = NewProjectsStore(s.DB)
	nowMillis = func() int64 { return testNow }
}

func (s *CopySuite) AfterTest(_, _ string) {
	require.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func TestDeepCopy(t *testing.T) {
	suite.Run(t, new(CopySuite))
}

func (s *CopySuite) expectProjectRowCopy() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1 AND deleted = false")).
		WithArgs("src").
		WillReturnRows(projectRows("src"))
	// Name conflict check in the target workspace.
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE name = $1 AND workspace = $2 AND deleted = false")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO projects")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tag_mappings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attributes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artifacts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()
}

func (s *CopySuite) TestDeepCopyEmptyProject() {
	s.expectProjectRowCopy()

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description FROM experiments WHERE project_id = $1 AND deleted = false ORDER BY id")).
		WithArgs("src").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM experiment_runs WHERE project_id = $1 AND deleted = false ORDER BY id")).
		WithArgs("src").
		WillReturnRows(sqlmock.NewRows([]string{"id", "experiment_id", "name", "description"}))

	// Final read of the clone.
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1 AND deleted = false")).
		WillReturnRows(projectRows("clone"))
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT tag FROM tag_mappings")).
		WillReturnRows(sqlmock.NewRows([]string{"tag"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM attributes")).
		WillReturnRows(sqlmock.NewRows([]string{"kv_key", "value_type", "kv_value"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM artifacts")).
		WillReturnRows(sqlmock.NewRows([]string{"ar_key", "ar_path", "artifact_type"}))

	clone, err := s.store.DeepCopy(context.Background(), "src", "u2", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "clone", clone.ID)
}

func (s *CopySuite) TestDeepCopyResolvesRepeatedNameConflicts() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1 AND deleted = false")).
		WithArgs("src").
		WillReturnRows(projectRows("src"))
	// The source name is taken, and so is the first suffixed candidate
	// (a previous copy of the same project); the third draw is free.
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE name = $1 AND workspace = $2 AND deleted = false")).
		WithArgs("fraud-detection", "acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("other"))
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE name = $1 AND workspace = $2 AND deleted = false")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("earlier-copy"))
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE name = $1 AND workspace = $2 AND deleted = false")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO projects")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tag_mappings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attributes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artifacts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM experiments WHERE project_id = $1 AND deleted = false")).
		WithArgs("src").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM experiment_runs WHERE project_id = $1 AND deleted = false")).
		WithArgs("src").
		WillReturnRows(sqlmock.NewRows([]string{"id", "experiment_id", "name", "description"}))

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1 AND deleted = false")).
		WillReturnRows(projectRows("clone"))
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT tag FROM tag_mappings")).
		WillReturnRows(sqlmock.NewRows([]string{"tag"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM attributes")).
		WillReturnRows(sqlmock.NewRows([]string{"kv_key", "value_type", "kv_value"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM artifacts")).
		WillReturnRows(sqlmock.NewRows([]string{"ar_key", "ar_path", "artifact_type"}))

	clone, err := s.store.DeepCopy(context.Background(), "src", "u2", "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "clone", clone.ID)
}

func (s *CopySuite) TestDeepCopyFailureRunsCompensatingCleanup() {
	s.expectProjectRowCopy()

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM experiments WHERE project_id = $1 AND deleted = false")).
		WithArgs("src").
		WillReturnError(errors.New("connection refused"))

	// Compensating cleanup of the partially built clone.
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM experiments WHERE project_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM experiment_runs WHERE project_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tag_mappings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attributes")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM artifacts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM experiment_runs WHERE project_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM experiments WHERE project_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM projects WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	_, err := s.store.DeepCopy(context.Background(), "src", "u2", "")
	require.Error(s.T(), err)
	assert.Contains(s.T(), err.Error(), "connection refused")
}

func (s *CopySuite) TestDeepCopyRequiresOwner() {
	_, err := s.store.DeepCopy(context.Background(), "src", "", "")
	assert.True(s.T(), errs.IsKind(err, errs.KindInvalidArgument))
}

func (s *CopySuite) TestDeepCopySourceNotFound() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1 AND deleted = false")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	s.mock.ExpectRollback()

	_, err := s.store.DeepCopy(context.Background(), "missing", "u2", "")
	assert.True(s.T(), errs.IsKind(err, errs.KindNotFound))
}
