package model

// Experiment groups experiment runs under a project. The project id is a
// weak back-reference: relation only, not ownership.
type Experiment struct {
	ID          string `gorm:"column:id;primaryKey"`
	ProjectID   string `gorm:"column:project_id;not null;index"`
	Name        string `gorm:"column:name;not null"`
	Description string `gorm:"column:description"`
	Owner       string `gorm:"column:owner;not null"`
	DateCreated int64  `gorm:"column:date_created;not null"`
	DateUpdated int64  `gorm:"column:date_updated;not null"`
	Deleted     bool   `gorm:"column:deleted;not null"`
}

func (Experiment) TableName() string {
	return "experiments"
}

// ExperimentRun is a single tracked execution within an experiment.
type ExperimentRun struct {
	ID           string `gorm:"column:id;primaryKey"`
	ProjectID    string `gorm:"column:project_id;not null;index"`
	ExperimentID string `gorm:"column:experiment_id;not null;index"`
	Name         string `gorm:"column:name;not null"`
	Description  string `gorm:"column:description"`
	Owner        string `gorm:"column:owner;not null"`
	DateCreated  int64  `gorm:"column:date_created;not null"`
	DateUpdated  int64  `gorm:"column:date_updated;not null"`
	Deleted      bool   `gorm:"column:deleted;not null"`
}

func (ExperimentRun) TableName() string {
	return "experiment_runs"
}
