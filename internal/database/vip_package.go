package database

import (
	"vip-payment-api/internal/models"
)

// GetActiveVIPPackages returns the purchasable packages in display order
func GetActiveVIPPackages() ([]models.VIPPackage, error) {
	var packages []models.VIPPackage
	err := DB.Where("is_active = ?", true).Order("display_order").Find(&packages).Error
	return packages, err
}

// GetVIPPackageByDuration returns the package for a duration, active or not
func GetVIPPackageByDuration(durationMonths int) (*models.VIPPackage, error) {
	var pkg models.VIPPackage
	err := DB.Where("duration_months = ?", durationMonths).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}
