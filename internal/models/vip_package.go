package models

// VIPPackage is one purchasable VIP duration. DurationMonths 0 means a
// lifetime package.
type VIPPackage struct {
	BaseModel
	DurationMonths int     `json:"duration_months" gorm:"uniqueIndex;not null"`
	Price          float64 `json:"price" gorm:"not null"`
	Title          string  `json:"title" gorm:"size:255"`
	Description    string  `json:"description" gorm:"type:text"`
	DiscountLabel  string  `json:"discount_label" gorm:"size:100"`
	IsActive       bool    `json:"is_active" gorm:"default:true"`
	IsFeatured     bool    `json:"is_featured" gorm:"default:false"`
	DisplayOrder   int     `json:"display_order" gorm:"default:0"`
}

// TableName specifies the table name
func (VIPPackage) TableName() string {
	return "vip_packages"
}
