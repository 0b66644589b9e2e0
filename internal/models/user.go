package models

import (
	"time"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User carries the subset of the user record the payment core touches:
// identity, role for the privileged endpoints, and the VIP entitlement.
//
// VIPExpiresAt is nil for both "lifetime VIP" and "no VIP"; IsVIP
// disambiguates, so the flag must always be read alongside the expiry.
type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"uniqueIndex;not null;size:100"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255"`
	Role         string     `json:"role" gorm:"not null;size:20;default:'user'"`
	IsVIP        bool       `json:"is_vip" gorm:"column:is_vip;default:false"`
	VIPExpiresAt *time.Time `json:"vip_expires_at" gorm:"column:vip_expires_at"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// HasActiveVIP reports whether the user's entitlement is active at now.
func (u *User) HasActiveVIP(now time.Time) bool {
	if !u.IsVIP {
		return false
	}
	if u.VIPExpiresAt == nil {
		return true // lifetime
	}
	return u.VIPExpiresAt.After(now)
}
