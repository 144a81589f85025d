package model

// Dataset holds metadata for a versioned data artifact.
type Dataset struct {
	ID          string `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name;not null"`
	Description string `gorm:"column:description"`
	Owner       string `gorm:"column:owner;not null"`
	Workspace   string `gorm:"column:workspace;not null"`
	Visibility  string `gorm:"column:visibility;not null"`
	DatasetType string `gorm:"column:dataset_type"`
	DateCreated int64  `gorm:"column:date_created;not null"`
	DateUpdated int64  `gorm:"column:date_updated;not null"`
	Deleted     bool   `gorm:"column:deleted;not null"`
}

func (Dataset) TableName() string {
	return "datasets"
}
