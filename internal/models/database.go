package models

import (
	"time"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Setting is one row of the system_settings key/value store.
// Gateway secrets and endpoints live here so they can be rotated at runtime;
// adapters read them per operation instead of caching at startup.
type Setting struct {
	BaseModel
	KeyName     string `json:"key_name" gorm:"uniqueIndex;not null;size:100"`
	Value       string `json:"value" gorm:"type:text"`
	Description string `json:"description"`
	IsSecure    bool   `json:"is_secure" gorm:"default:false"` // masked in admin listings
}

// TableName specifies the table name
func (Setting) TableName() string {
	return "system_settings"
}
