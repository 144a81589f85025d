package model

// Artifact is a named artifact reference attached to an entity. Keys are
// unique per entity; blob storage and URL signing live outside the catalog.
type Artifact struct {
	EntityID     string `gorm:"column:entity_id;primaryKey"`
	EntityType   string `gorm:"column:entity_type;primaryKey"`
	Key          string `gorm:"column:ar_key;primaryKey"`
	Path         string `gorm:"column:ar_path;not null"`
	ArtifactType string `gorm:"column:artifact_type"`
}

func (Artifact) TableName() string {
	return "artifacts"
}
