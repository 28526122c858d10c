package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func createRole(t *testing.T, db *gorm.DB, name string) Role {
	t.Helper()
	role := Role{Name: name}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("create role %s: %v", name, err)
	}
	return role
}

func createUser(t *testing.T, db *gorm.DB, roleID uint32, name, email string) User {
	t.Helper()
	user := User{Name: name, Email: email, Password: "digest", RoleID: roleID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func TestUserEmailUnique(t *testing.T) {
	db := setupTestDB(t, "user", &User{}, &Role{})
	role := createRole(t, db, "Staff")

	createUser(t, db, role.ID, "First Holder", "shared@example.com")

	dup := User{Name: "Second Holder", Email: "shared@example.com", Password: "digest", RoleID: role.ID}
	assert.Error(t, db.Create(&dup).Error, "duplicate email must be rejected by the unique index")

	other := User{Name: "Second Holder", Email: "other@example.com", Password: "digest", RoleID: role.ID}
	assert.NoError(t, db.Create(&other).Error)
}

func TestUserSoftDelete(t *testing.T) {
	db := setupTestDB(t, "user", &User{}, &Role{})
	role := createRole(t, db, "Staff")
	user := createUser(t, db, role.ID, "Leaving Staff", "leaving@example.com")

	assert.NoError(t, db.Delete(&user).Error)

	var found User
	err := db.First(&found, user.ID).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "soft-deleted user must not surface in normal queries")

	var trashed User
	assert.NoError(t, db.Unscoped().First(&trashed, user.ID).Error)
	assert.True(t, trashed.DeletedAt.Valid, "row must stay on disk with a deletion timestamp")
}

func TestUserLockRoundTrip(t *testing.T) {
	db := setupTestDB(t, "user", &User{}, &Role{})
	role := createRole(t, db, "Staff")
	user := createUser(t, db, role.ID, "Locked Out", "locked@example.com")

	var fresh User
	assert.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, 0, fresh.FailedAttempts)
	assert.Nil(t, fresh.LockedUntil)

	lockUntil := time.Now().Add(15 * time.Minute).Unix()
	fresh.FailedAttempts = 5
	fresh.LockedUntil = &lockUntil
	assert.NoError(t, db.Save(&fresh).Error)

	var locked User
	assert.NoError(t, db.First(&locked, user.ID).Error)
	assert.Equal(t, 5, locked.FailedAttempts)
	if assert.NotNil(t, locked.LockedUntil) {
		assert.Equal(t, lockUntil, *locked.LockedUntil)
	}

	locked.FailedAttempts = 0
	locked.LockedUntil = nil
	assert.NoError(t, db.Save(&locked).Error)

	var cleared User
	assert.NoError(t, db.First(&cleared, user.ID).Error)
	assert.Equal(t, 0, cleared.FailedAttempts)
	assert.Nil(t, cleared.LockedUntil, "clearing the lock must write NULL back")
}

// API handlers serialize User straight into responses, so the credential
// and lockout columns must never marshal.
func TestUserJSONHidesCredentials(t *testing.T) {
	lockUntil := time.Now().Unix()
	user := User{
		Name:           "Serialized Staff",
		Email:          "wire@example.com",
		Password:       "digest",
		PasswordSalt:   "salt",
		RoleID:         RoleStaff,
		FailedAttempts: 2,
		LockedUntil:    &lockUntil,
	}

	raw, err := json.Marshal(user)
	assert.NoError(t, err)

	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &payload))

	for _, hidden := range []string{"password", "Password", "password_salt", "PasswordSalt", "failed_attempts", "locked_until"} {
		_, present := payload[hidden]
		assert.False(t, present, "field %s must not serialize", hidden)
	}
	assert.Equal(t, "wire@example.com", payload["email"])
	assert.Equal(t, float64(RoleStaff), payload["role_id"])
	assert.Contains(t, payload, "ID")
}

func TestUserLookupByEmail(t *testing.T) {
	db := setupTestDB(t, "user", &User{}, &Role{})
	role := createRole(t, db, "Staff")
	createUser(t, db, role.ID, "Front Desk", "frontdesk@example.com")

	var found User
	assert.NoError(t, db.Where("email = ?", "frontdesk@example.com").First(&found).Error)
	assert.Equal(t, "Front Desk", found.Name)

	err := db.Where("email = ?", "unknown@example.com").First(&User{}).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
