package gorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/model"
	"github.com/zulily/modeldb/pkg/store"
)

// defaultCopyChunkSize bounds the per-transaction batch while copying
// the experiment and run trees of large projects.
const defaultCopyChunkSize = 100

// DeepCopy clones a project with its live experiments and runs for a
// new owner. The clone is built across several transactions so large
// trees don't hold one giant transaction open; a failure after the
// first commit triggers compensating cleanup of everything created so
// far.
func (s *ProjectsStore) DeepCopy(ctx context.Context, sourceID, newOwner, workspace string) (*store.Project, error) {
	if newOwner == "" {
		return nil, errs.InvalidArgument("new owner must not be empty")
	}

	newID, err := s.copyProjectRow(ctx, sourceID, newOwner, workspace)
	if err != nil {
		return nil, err
	}

	if err := s.copyChildren(ctx, sourceID, newID, newOwner); err != nil {
		if cleanupErr := s.cleanupCopy(ctx, newID); cleanupErr != nil {
			return nil, errs.Internal(err, "copying project %s failed and cleanup of partial copy %s also failed: %v", sourceID, newID, cleanupErr)
		}
		return nil, err
	}

	return s.GetByID(ctx, newID)
}

// copyProjectRow creates the clone's project row with its tags,
// attributes and artifacts in one transaction.
func (s *ProjectsStore) copyProjectRow(ctx context.Context, sourceID, newOwner, workspace string) (string, error) {
	newID := uuid.NewString()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var src projectRow
		result := tx.Raw(
			"SELECT "+projectColumns+" FROM projects WHERE id = ? AND deleted = false",
			sourceID,
		).Scan(&src)
		if result.Error != nil {
			return result.Error
		}
		if src.ID == "" {
			return errs.NotFound("project %s not found", sourceID)
		}

		if workspace == "" {
			workspace = src.Workspace
		}
		name := src.Name
		for {
			var conflict string
			result = tx.Raw(
				"SELECT id FROM projects WHERE name = ? AND workspace = ? AND deleted = false",
				name, workspace,
			).Scan(&conflict)
			if result.Error != nil {
				return result.Error
			}
			if conflict == "" {
				break
			}
			// A suffixed candidate can itself be taken when the same
			// project was already copied into this workspace, so keep
			// drawing suffixes until one is free.
			name = fmt.Sprintf("%s-copy-%s", src.Name, strings.Split(uuid.NewString(), "-")[0])
		}

		now := nowMillis()
		err := tx.Exec(
			`INSERT INTO projects (id, name, short_name, description, owner, workspace, visibility, readme_text, code_version, date_created, date_updated, deleted)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, false)`,
			newID, name, shortNameFor(name), src.Description, newOwner, workspace,
			model.VisibilityPrivate, src.ReadmeText, src.CodeVersion, now, now,
		).Error
		if err != nil {
			return err
		}
		return s.ent.copyDecorations(tx, sourceID, newID)
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

type childRow struct {
	ID           string
	ExperimentID string
	Name         string
	Description  string
}

// copyChildren clones the live experiments and their runs under the
// source project, chunk by chunk, remapping parent references onto the
// clone.
func (s *ProjectsStore) copyChildren(ctx context.Context, sourceID, newID, newOwner string) error {
	db := s.db.WithContext(ctx)

	var experiments []childRow
	result := db.Raw(
		"SELECT id, name, description FROM experiments WHERE project_id = ? AND deleted = false ORDER BY id",
		sourceID,
	).Scan(&experiments)
	if result.Error != nil {
		return result.Error
	}

	experimentIDs := make(map[string]string, len(experiments))
	for start := 0; start < len(experiments); start += s.copyChunk {
		end := start + s.copyChunk
		if end > len(experiments) {
			end = len(experiments)
		}
		chunk := experiments[start:end]
		err := db.Transaction(func(tx *gorm.DB) error {
			now := nowMillis()
			for _, exp := range chunk {
				cloneID := uuid.NewString()
				experimentIDs[exp.ID] = cloneID
				err := tx.Exec(
					`INSERT INTO experiments (id, project_id, name, description, owner, date_created, date_updated, deleted)
					 VALUES (?, ?, ?, ?, ?, ?, ?, false)`,
					cloneID, newID, exp.Name, exp.Description, newOwner, now, now,
				).Error
				if err != nil {
					return err
				}
				experimentEnt := entityAccessors{table: "experiments", entityType: model.EntityTypeExperiment}
				if err := experimentEnt.copyDecorations(tx, exp.ID, cloneID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var runs []childRow
	result = db.Raw(
		"SELECT id, experiment_id, name, description FROM experiment_runs WHERE project_id = ? AND deleted = false ORDER BY id",
		sourceID,
	).Scan(&runs)
	if result.Error != nil {
		return result.Error
	}

	for start := 0; start < len(runs); start += s.copyChunk {
		end := start + s.copyChunk
		if end > len(runs) {
			end = len(runs)
		}
		chunk := runs[start:end]
		err := db.Transaction(func(tx *gorm.DB) error {
			now := nowMillis()
			for _, run := range chunk {
				cloneExperiment, ok := experimentIDs[run.ExperimentID]
				if !ok {
					// Run points at a deleted experiment; skip it.
					continue
				}
				cloneID := uuid.NewString()
				err := tx.Exec(
					`INSERT INTO experiment_runs (id, project_id, experiment_id, name, description, owner, date_created, date_updated, deleted)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, false)`,
					cloneID, newID, cloneExperiment, run.Name, run.Description, newOwner, now, now,
				).Error
				if err != nil {
					return err
				}
				runEnt := entityAccessors{table: "experiment_runs", entityType: model.EntityTypeExperimentRun}
				if err := runEnt.copyDecorations(tx, run.ID, cloneID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// cleanupCopy hard-deletes a partially built clone tree. The rows never
// became visible to readers under the new owner's scope, so removal is
// safe.
func (s *ProjectsStore) cleanupCopy(ctx context.Context, newID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var experimentIDs []string
		result := tx.Raw("SELECT id FROM experiments WHERE project_id = ?", newID).Scan(&experimentIDs)
		if result.Error != nil {
			return result.Error
		}
		var runIDs []string
		result = tx.Raw("SELECT id FROM experiment_runs WHERE project_id = ?", newID).Scan(&runIDs)
		if result.Error != nil {
			return result.Error
		}

		for entityType, ids := range map[string][]string{
			model.EntityTypeProject:       {newID},
			model.EntityTypeExperiment:    experimentIDs,
			model.EntityTypeExperimentRun: runIDs,
		} {
			if len(ids) == 0 {
				continue
			}
			for _, table := range []string{"tag_mappings", "attributes", "artifacts"} {
				err := tx.Exec(
					fmt.Sprintf("DELETE FROM %s WHERE entity_id IN ? AND entity_type = ?", table),
					ids, entityType,
				).Error
				if err != nil {
					return err
				}
			}
		}

		if err := tx.Exec("DELETE FROM experiment_runs WHERE project_id = ?", newID).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM experiments WHERE project_id = ?", newID).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM projects WHERE id = ?", newID).Error
	})
}
