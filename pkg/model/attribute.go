package model

// Attribute is one typed key/value pair attached to an entity. ValueType
// discriminates the encoding of Value (number, string or JSON blob); keys
// are unique per entity and create-once.
type Attribute struct {
	EntityID   string `gorm:"column:entity_id;primaryKey"`
	EntityType string `gorm:"column:entity_type;primaryKey"`
	Key        string `gorm:"column:kv_key;primaryKey"`
	ValueType  string `gorm:"column:value_type;not null"`
	Value      string `gorm:"column:kv_value;not null"`
}

func (Attribute) TableName() string {
	return "attributes"
}
