package database

import (
	"errors"
	"vip-payment-api/internal/models"

	"gorm.io/gorm"
)

// GetSettingValue reads one system setting, or "" when absent. Gateway
// adapters call this on every operation so rotated secrets take effect
// without a restart.
func GetSettingValue(keyName string) (string, error) {
	var setting models.Setting
	err := DB.Where("key_name = ?", keyName).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

// SettingOrDefault reads a system setting and falls back to the given
// default when the row is missing or the lookup fails.
func SettingOrDefault(keyName, fallback string) string {
	value, err := GetSettingValue(keyName)
	if err != nil || value == "" {
		return fallback
	}
	return value
}
