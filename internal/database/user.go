package database

import (
	"time"
	"vip-payment-api/internal/models"
)

// GetUserByID returns a user by id
func GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserVIP persists a computed entitlement onto the user row.
// expiresAt nil together with isVIP true means lifetime.
func UpdateUserVIP(id uint, isVIP bool, expiresAt *time.Time) error {
	return DB.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_vip":         isVIP,
			"vip_expires_at": expiresAt,
		}).Error
}
