package model

import (
	"testing"
)

func TestSeedRolesInstallsBuiltinRoles(t *testing.T) {
	db := setupTestDB(t, "role", &Role{})

	if err := SeedRoles(db); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	// On a fresh database the insert order pins the IDs the constants name.
	want := map[uint32]string{
		RoleAdmin:  "Admin",
		RoleDoctor: "Doctor",
		RoleStaff:  "Staff",
	}
	for id, name := range want {
		var role Role
		if err := db.First(&role, id).Error; err != nil {
			t.Fatalf("load role %d: %v", id, err)
		}
		if role.Name != name {
			t.Errorf("role %d = %q, want %q", id, role.Name, name)
		}
	}
}

func TestSeedRolesIsIdempotent(t *testing.T) {
	db := setupTestDB(t, "role_reseed", &Role{})

	for run := 1; run <= 2; run++ {
		if err := SeedRoles(db); err != nil {
			t.Fatalf("seed roles (run %d): %v", run, err)
		}
	}

	var count int64
	if err := db.Model(&Role{}).Count(&count).Error; err != nil {
		t.Fatalf("count roles: %v", err)
	}
	if count != 3 {
		t.Fatalf("role count after reseeding = %d, want 3", count)
	}
}
