package model

import (
	"fmt"

	"gorm.io/gorm"
)

type Role struct {
	gorm.Model
	ID   uint32 `gorm:"primary_key;auto_increment" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

// Role IDs assigned by SeedRoles on a fresh database.
const (
	RoleAdmin  uint32 = 1
	RoleDoctor uint32 = 2
	RoleStaff  uint32 = 3
)

// SeedRoles inserts the built-in roles when missing. Insert order on a fresh
// database fixes the IDs the Role constants rely on.
func SeedRoles(db *gorm.DB) error {
	for _, name := range []string{"Admin", "Doctor", "Staff"} {
		role := Role{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}
