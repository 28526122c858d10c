package endpoint_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

func TestUserLifecycle(t *testing.T) {
	r, db, adminToken, nadiaToken, nadiaID := serverWithAdminAndUser(t, signupCreds{Name: "Nadia Rossi", Email: "nadia@example.com", Password: "wardpass99"})

	t.Run("admin lists both accounts", func(t *testing.T) {
		data := listUsersData(t, r, adminToken, "")
		assertListCounts(t, data, 2, 2)
	})

	t.Run("admin reads a profile", func(t *testing.T) {
		rr, err := doRequest(r, "GET", fmt.Sprintf("/user/%d", nadiaID), nil, sessionHeaders(adminToken))
		if err != nil {
			t.Fatalf("get user failed: %v", err)
		}
		if rr.Code != http.StatusOK {
			t.Fatalf("get user returned %d: %s", rr.Code, rr.Body.String())
		}
		resp := parseAPIResp(t, rr)
		var fetched model.User
		if err := json.Unmarshal(resp.Data, &fetched); err != nil {
			t.Fatalf("parse user payload failed: %v", err)
		}
		if fetched.Email != "nadia@example.com" {
			t.Errorf("expected nadia@example.com, got %s", fetched.Email)
		}
		if fetched.Password != "" {
			t.Errorf("password digest must not serialize, got %q", fetched.Password)
		}
	})

	t.Run("malformed IDs are rejected", func(t *testing.T) {
		rr, err := doRequest(r, "GET", "/user/abc", nil, sessionHeaders(adminToken))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for non-numeric id, got %d", rr.Code)
		}
		if resp := parseAPIResp(t, rr); resp.Msg != "ID must be a valid integer" {
			t.Errorf("unexpected message: %q", resp.Msg)
		}

		rr, err = doRequest(r, "GET", "/user/0", nil, sessionHeaders(adminToken))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for zero id, got %d", rr.Code)
		}
		if resp := parseAPIResp(t, rr); resp.Msg != "ID must be a positive integer" {
			t.Errorf("unexpected message: %q", resp.Msg)
		}
	})

	t.Run("staff role cannot reach admin routes", func(t *testing.T) {
		staff := model.User{Name: "Desk Staff", Email: "desk@example.com", Password: "digest", RoleID: model.RoleStaff}
		if err := db.Create(&staff).Error; err != nil {
			t.Fatalf("create staff user: %v", err)
		}
		sess := model.Session{UserID: staff.ID, SessionToken: "staff-session-token", ExpiresAt: time.Now().Add(time.Hour)}
		if err := db.Create(&sess).Error; err != nil {
			t.Fatalf("create staff session: %v", err)
		}

		rr, err := doRequest(r, "GET", "/user", nil, sessionHeaders("staff-session-token"))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403 for staff on admin route, got %d", rr.Code)
		}
		if resp := parseAPIResp(t, rr); resp.Msg != "Insufficient permissions" {
			t.Errorf("unexpected message: %q", resp.Msg)
		}
	})

	t.Run("admin resets the password", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"password": "newwardpass1"})
		rr, err := doRequest(r, "PATCH", fmt.Sprintf("/user/%d", nadiaID), body, sessionHeaders(adminToken))
		if err != nil {
			t.Fatalf("password reset failed: %v", err)
		}
		if rr.Code != http.StatusOK {
			t.Fatalf("password reset returned %d: %s", rr.Code, rr.Body.String())
		}

		var u model.User
		if err := db.First(&u, nadiaID).Error; err != nil {
			t.Fatalf("load user: %v", err)
		}
		if u.Password != util.HashPassword("newwardpass1") {
			t.Errorf("expected HMAC digest after admin reset")
		}

		// The reset does not invalidate the open session.
		rr, err = doRequest(r, "GET", "/token/validate", nil, map[string]string{"session-token": nadiaToken})
		if err != nil {
			t.Fatalf("token validate failed: %v", err)
		}
		if rr.Code != http.StatusOK {
			t.Errorf("expected session to stay valid after reset, got %d", rr.Code)
		}
	})

	t.Run("next login upgrades the digest", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"email": "nadia@example.com", "password": "newwardpass1"})
		rr, err := doRequest(r, "POST", "/login", body, apiAuthHeader)
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if rr.Code != http.StatusOK {
			t.Fatalf("login returned %d: %s", rr.Code, rr.Body.String())
		}

		var u model.User
		if err := db.First(&u, nadiaID).Error; err != nil {
			t.Fatalf("load user: %v", err)
		}
		if !strings.HasPrefix(u.Password, util.Argon2Prefix) {
			t.Errorf("expected Argon2 digest after login")
		}
	})

	t.Run("account updates its own profile", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"name": "Nadia R. Verdi", "password": "calmward77"})
		rr, err := doRequest(r, "PATCH", "/user", body, sessionHeaders(nadiaToken))
		if err != nil {
			t.Fatalf("self update failed: %v", err)
		}
		if rr.Code != http.StatusOK {
			t.Fatalf("self update returned %d: %s", rr.Code, rr.Body.String())
		}

		var u model.User
		if err := db.First(&u, nadiaID).Error; err != nil {
			t.Fatalf("load user: %v", err)
		}
		if u.Name != "Nadia R. Verdi" {
			t.Errorf("expected updated name, got %q", u.Name)
		}
		if u.Password != util.HashPassword("calmward77") {
			t.Errorf("expected HMAC digest after self update")
		}
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		rr, err := doRequest(r, "PATCH", "/user", []byte(`{}`), sessionHeaders(nadiaToken))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for empty update, got %d", rr.Code)
		}
		if resp := parseAPIResp(t, rr); resp.Msg != "At least one field (name, email, or password) must be provided" {
			t.Errorf("unexpected message: %q", resp.Msg)
		}
	})

	t.Run("admin deletes the account", func(t *testing.T) {
		rr, err := doRequest(r, "DELETE", fmt.Sprintf("/user/%d", nadiaID), nil, sessionHeaders(adminToken))
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if rr.Code != http.StatusOK {
			t.Fatalf("delete returned %d: %s", rr.Code, rr.Body.String())
		}

		// Profile is gone and the session no longer validates.
		rr, err = doRequest(r, "GET", fmt.Sprintf("/user/%d", nadiaID), nil, sessionHeaders(adminToken))
		if err != nil {
			t.Fatalf("get user failed: %v", err)
		}
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404 for deleted user, got %d", rr.Code)
		}
		rr, err = doRequest(r, "GET", "/token/validate", nil, map[string]string{"session-token": nadiaToken})
		if err != nil {
			t.Fatalf("token validate failed: %v", err)
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected deleted user's session to be invalid, got %d", rr.Code)
		}
	})
}

func TestUserEmailUpdates(t *testing.T) {
	r, db, adminToken, ruiToken, ruiID := serverWithAdminAndUser(t, signupCreds{Name: "Rui Tan", Email: "rui@example.com", Password: "frontdesk8"})
	_, senaID := createAndLoginUser(t, r, signupCreds{Name: "Sena Yilmaz", Email: "sena@example.com", Password: "frontdesk8"})

	t.Run("account changes its own email", func(t *testing.T) {
		rr := patchUserEmail(t, r, emailUpdate{token: ruiToken, email: "rui.tan@example.com"})
		if rr.Code != http.StatusOK {
			t.Fatalf("email update returned %d: %s", rr.Code, rr.Body.String())
		}
		assertUserEmail(t, db, ruiID, "rui.tan@example.com")
	})

	t.Run("admin changes another account's email", func(t *testing.T) {
		rr := patchUserEmail(t, r, emailUpdate{token: adminToken, path: fmt.Sprintf("/user/%d", senaID), email: "sena.y@example.com"})
		if rr.Code != http.StatusOK {
			t.Fatalf("email update returned %d: %s", rr.Code, rr.Body.String())
		}
		assertUserEmail(t, db, senaID, "sena.y@example.com")
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		rr := patchUserEmail(t, r, emailUpdate{token: ruiToken, email: "sena.y@example.com"})
		if rr.Code == http.StatusOK {
			t.Fatalf("expected duplicate email rejection, got 200")
		}
		if resp := parseAPIResp(t, rr); resp.Msg != "Email already exists" {
			t.Errorf("unexpected message: %q", resp.Msg)
		}
		assertUserEmail(t, db, ruiID, "rui.tan@example.com")
	})

	t.Run("resubmitting the current email succeeds", func(t *testing.T) {
		rr := patchUserEmail(t, r, emailUpdate{token: ruiToken, email: "rui.tan@example.com"})
		if rr.Code != http.StatusOK {
			t.Fatalf("email update returned %d: %s", rr.Code, rr.Body.String())
		}
		assertUserEmail(t, db, ruiID, "rui.tan@example.com")
	})
}

func collectUserIDs(t *testing.T, data map[string]interface{}) []uint {
	t.Helper()

	users, ok := data["users"].([]interface{})
	if !ok {
		t.Fatalf("expected users array, got %T", data["users"])
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		m, ok := u.(map[string]interface{})
		if !ok {
			t.Fatalf("expected user object, got %T", u)
		}
		id, ok := m["ID"].(float64)
		if !ok {
			t.Fatalf("expected numeric ID, got %T", m["ID"])
		}
		ids = append(ids, uint(id))
	}
	return ids
}

func TestListUsersPaginationAndSearch(t *testing.T) {
	r, _, cleanup := setupTestServer(t)
	t.Cleanup(cleanup)
	adminToken := seedStaffDirectory(t, r)

	// Six accounts total: the admin plus five staff.
	cases := []struct {
		name    string
		query   string
		total   int
		fetched int
	}{
		{"default page returns everyone", "", 6, 6},
		{"limit caps the page", "limit=3", 6, 3},
		{"offset skips rows", "offset=2", 6, 4},
		{"limit with offset", "limit=2&offset=1", 6, 2},
		{"keyword matches a name", "keyword=amelia", 1, 1},
		{"keyword matches an email", "keyword=ben@example", 1, 1},
		{"keyword with paging", "keyword=example&limit=2&offset=1", 6, 2},
		{"negative limit falls back to default", "limit=-5", 6, 6},
		{"negative offset is ignored", "offset=-3", 6, 6},
		{"oversized limit is capped", "limit=10000", 6, 6},
		{"empty keyword is ignored", "keyword=", 6, 6},
		{"unmatched keyword finds nothing", "keyword=nonexistent", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := listUsersData(t, r, adminToken, tc.query)
			assertListCounts(t, data, tc.total, tc.fetched)
		})
	}

	t.Run("cursor walks the directory in order", func(t *testing.T) {
		var all []uint
		cursor := 0
		for steps := 0; ; steps++ {
			if steps > 10 {
				t.Fatalf("cursor walk did not terminate")
			}
			query := "limit=2"
			if cursor > 0 {
				query = fmt.Sprintf("limit=2&cursor=%d", cursor)
			}
			page := listUsersData(t, r, adminToken, query)
			ids := collectUserIDs(t, page)
			for _, id := range ids {
				if int(id) <= cursor {
					t.Fatalf("cursor page returned id %d, not after cursor %d", id, cursor)
				}
			}
			all = append(all, ids...)

			hasMore, _ := page["has_more"].(bool)
			if !hasMore {
				if page["next_cursor"] != nil {
					t.Errorf("expected null next_cursor on last page, got %v", page["next_cursor"])
				}
				break
			}
			next, ok := page["next_cursor"].(float64)
			if !ok {
				t.Fatalf("expected numeric next_cursor while has_more, got %T", page["next_cursor"])
			}
			cursor = int(next)
		}

		if len(all) != 6 {
			t.Fatalf("expected to walk 6 accounts, walked %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i] <= all[i-1] {
				t.Fatalf("ids not ascending: %v", all)
			}
		}
	})
}
