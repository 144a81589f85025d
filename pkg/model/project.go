package model

// Project is the top-level container for experiments and experiment runs.
type Project struct {
	ID          string `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name;not null"`
	ShortName   string `gorm:"column:short_name"`
	Description string `gorm:"column:description"`
	Owner       string `gorm:"column:owner;not null"`
	Workspace   string `gorm:"column:workspace;not null"`
	Visibility  string `gorm:"column:visibility;not null"`
	ReadmeText  string `gorm:"column:readme_text"`
	// CodeVersion is an immutable JSON snapshot, set once via LogCodeVersion.
	CodeVersion string `gorm:"column:code_version"`
	DateCreated int64  `gorm:"column:date_created;not null"`
	DateUpdated int64  `gorm:"column:date_updated;not null"`
	Deleted     bool   `gorm:"column:deleted;not null"`
}

func (Project) TableName() string {
	return "projects"
}
