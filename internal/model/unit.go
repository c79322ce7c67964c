package model

import "time"

// Unit 课程单元表 — 对应 units
type Unit struct {
	UnitID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"unit_id"`
	LegacyID    *int64  `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	CourseID    string  `gorm:"type:uuid;not null"                             json:"course_id"`
	Title       string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string  `gorm:"type:text;not null;default:''"                  json:"description"`
	OrderIndex  int     `gorm:"not null;default:0"                             json:"order_index"`
	IsPublished bool    `gorm:"not null;default:false"                         json:"is_published"`
	CreatedBy   *string `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Unit) TableName() string { return "units" }

// UnitMaterial 单元资料表 — 对应 unit_materials
type UnitMaterial struct {
	MaterialID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"material_id"`
	UnitID     string    `gorm:"type:uuid;not null"                             json:"unit_id"`
	Kind       string    `gorm:"type:varchar(10);not null"                      json:"kind"` // file | link
	Title      string    `gorm:"type:varchar(200);not null;default:''"          json:"title"`
	URL        string    `gorm:"column:url;type:varchar(1000);not null"         json:"url"`
	FileName   string    `gorm:"type:varchar(255);not null;default:''"          json:"file_name"`
	FileSize   int64     `gorm:"not null;default:0"                             json:"file_size"`
	MimeType   string    `gorm:"type:varchar(150);not null;default:''"          json:"mime_type"`
	StorageKey string    `gorm:"type:varchar(500);not null;default:''"          json:"-"`
	OrderIndex int       `gorm:"not null;default:0"                             json:"order_index"`
	CreatedBy  *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (UnitMaterial) TableName() string { return "unit_materials" }
