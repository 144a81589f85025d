package model

// TagMapping attaches one tag to one entity. Insertion order is preserved
// by the serial position column; (entity_id, entity_type, tag) is unique.
type TagMapping struct {
	EntityID   string `gorm:"column:entity_id;primaryKey"`
	EntityType string `gorm:"column:entity_type;primaryKey"`
	Tag        string `gorm:"column:tag;primaryKey"`
	Position   int64  `gorm:"column:position;autoIncrement"`
}

func (TagMapping) TableName() string {
	return "tag_mappings"
}
