package auth

import (
	"errors"
	"strings"
	"testing"
)

// TestOperatorStore_CreateOperator tests operator creation and validation
func TestOperatorStore_CreateOperator(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		role      string
		wantError error
	}{
		{
			name:     "Valid admin",
			username: "alice",
			password: "AlicePass123!",
			role:     RoleAdmin,
		},
		{
			name:     "Valid operator",
			username: "bob",
			password: "BobPass123!",
			role:     RoleOperator,
		},
		{
			name:     "Valid viewer",
			username: "carol",
			password: "CarolPass123!",
			role:     RoleViewer,
		},
		{
			name:      "Username too short",
			username:  "ab",
			password:  "ValidPass123!",
			role:      RoleViewer,
			wantError: ErrInvalidUsername,
		},
		{
			name:      "Username with invalid characters",
			username:  "alice smith",
			password:  "ValidPass123!",
			role:      RoleViewer,
			wantError: ErrInvalidUsername,
		},
		{
			name:      "Empty password",
			username:  "dave",
			password:  "",
			role:      RoleViewer,
			wantError: ErrEmptyPassword,
		},
		{
			name:      "Weak password",
			username:  "erin",
			password:  "short",
			role:      RoleViewer,
			wantError: ErrWeakPassword,
		},
		{
			name:      "Invalid role",
			username:  "frank",
			password:  "FrankPass123!",
			role:      "superuser",
			wantError: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewOperatorStore()
			operator, err := store.CreateOperator(tt.username, tt.password, tt.role)

			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("Expected error %v, got %v", tt.wantError, err)
				}
				if operator != nil {
					t.Error("Expected nil operator on error")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if operator.ID == "" {
				t.Error("Expected non-empty operator ID")
			}
			if operator.Username != tt.username {
				t.Errorf("Expected username %s, got %s", tt.username, operator.Username)
			}
			if operator.Role != tt.role {
				t.Errorf("Expected role %s, got %s", tt.role, operator.Role)
			}
			if operator.PasswordHash == tt.password {
				t.Error("Password must not be stored in plaintext")
			}
			if !strings.HasPrefix(operator.PasswordHash, "$2") {
				t.Errorf("Expected bcrypt hash, got %s", operator.PasswordHash)
			}
			if operator.CreatedAt == 0 {
				t.Error("Expected non-zero CreatedAt")
			}
		})
	}
}

// TestOperatorStore_DuplicateUsername tests duplicate rejection
func TestOperatorStore_DuplicateUsername(t *testing.T) {
	store := NewOperatorStore()

	if _, err := store.CreateOperator("alice", "AlicePass123!", RoleAdmin); err != nil {
		t.Fatalf("Failed to create operator: %v", err)
	}

	_, err := store.CreateOperator("alice", "OtherPass123!", RoleViewer)
	if !errors.Is(err, ErrOperatorExists) {
		t.Errorf("Expected ErrOperatorExists, got %v", err)
	}
}

// TestOperatorStore_Lookup tests retrieval by username and ID
func TestOperatorStore_Lookup(t *testing.T) {
	store := NewOperatorStore()

	created, err := store.CreateOperator("alice", "AlicePass123!", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create operator: %v", err)
	}

	byName, err := store.GetOperatorByUsername("alice")
	if err != nil {
		t.Fatalf("GetOperatorByUsername failed: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("Expected ID %s, got %s", created.ID, byName.ID)
	}

	byID, err := store.GetOperatorByID(created.ID)
	if err != nil {
		t.Fatalf("GetOperatorByID failed: %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("Expected username alice, got %s", byID.Username)
	}

	if _, err := store.GetOperatorByUsername("nobody"); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Expected ErrOperatorNotFound, got %v", err)
	}
	if _, err := store.GetOperatorByID("no-such-id"); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Expected ErrOperatorNotFound, got %v", err)
	}
}

// TestOperatorStore_VerifyPassword tests credential checks
func TestOperatorStore_VerifyPassword(t *testing.T) {
	store := NewOperatorStore()

	operator, err := store.CreateOperator("alice", "AlicePass123!", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create operator: %v", err)
	}

	if !store.VerifyPassword(operator, "AlicePass123!") {
		t.Error("Expected correct password to verify")
	}
	if store.VerifyPassword(operator, "WrongPass123!") {
		t.Error("Expected wrong password to fail")
	}
	if store.VerifyPassword(operator, "") {
		t.Error("Expected empty password to fail")
	}
	if store.VerifyPassword(nil, "AlicePass123!") {
		t.Error("Expected nil operator to fail")
	}
}

// TestOperatorStore_UpdateRole tests role updates
func TestOperatorStore_UpdateRole(t *testing.T) {
	store := NewOperatorStore()

	operator, err := store.CreateOperator("alice", "AlicePass123!", RoleViewer)
	if err != nil {
		t.Fatalf("Failed to create operator: %v", err)
	}

	if err := store.UpdateOperatorRole(operator.ID, RoleAdmin); err != nil {
		t.Errorf("Failed to update role: %v", err)
	}

	updated, err := store.GetOperatorByID(operator.ID)
	if err != nil {
		t.Fatalf("Failed to get operator: %v", err)
	}
	if updated.Role != RoleAdmin {
		t.Errorf("Expected role %s, got %s", RoleAdmin, updated.Role)
	}

	if err := store.UpdateOperatorRole(operator.ID, "superuser"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
	if err := store.UpdateOperatorRole("no-such-id", RoleAdmin); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Expected ErrOperatorNotFound, got %v", err)
	}
}

// TestOperatorStore_DeleteOperator tests deletion and username reuse
func TestOperatorStore_DeleteOperator(t *testing.T) {
	store := NewOperatorStore()

	operator, err := store.CreateOperator("alice", "AlicePass123!", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create operator: %v", err)
	}

	if err := store.DeleteOperator(operator.ID); err != nil {
		t.Errorf("Failed to delete operator: %v", err)
	}

	if _, err := store.GetOperatorByID(operator.ID); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Expected ErrOperatorNotFound after delete, got %v", err)
	}

	// Username becomes available again after delete
	if _, err := store.CreateOperator("alice", "NewPass123!", RoleViewer); err != nil {
		t.Errorf("Expected username to be reusable after delete: %v", err)
	}

	if err := store.DeleteOperator("no-such-id"); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Expected ErrOperatorNotFound, got %v", err)
	}
}

// TestOperatorStore_ChangePassword tests password rotation
func TestOperatorStore_ChangePassword(t *testing.T) {
	store := NewOperatorStore()

	operator, err := store.CreateOperator("alice", "OldPass123!", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create operator: %v", err)
	}

	if err := store.ChangePassword(operator.ID, "NewPass123!"); err != nil {
		t.Errorf("Failed to change password: %v", err)
	}

	updated, err := store.GetOperatorByID(operator.ID)
	if err != nil {
		t.Fatalf("Failed to get operator: %v", err)
	}
	if store.VerifyPassword(updated, "OldPass123!") {
		t.Error("Old password should no longer verify")
	}
	if !store.VerifyPassword(updated, "NewPass123!") {
		t.Error("New password should verify")
	}

	if err := store.ChangePassword(operator.ID, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}
	if err := store.ChangePassword("no-such-id", "ValidPass123!"); !errors.Is(err, ErrOperatorNotFound) {
		t.Errorf("Expected ErrOperatorNotFound, got %v", err)
	}
}

// TestOperatorStore_ListOperators tests listing
func TestOperatorStore_ListOperators(t *testing.T) {
	store := NewOperatorStore()

	if got := store.ListOperators(); len(got) != 0 {
		t.Errorf("Expected empty list, got %d", len(got))
	}

	for _, username := range []string{"alice", "bob", "carol"} {
		if _, err := store.CreateOperator(username, "ValidPass123!", RoleViewer); err != nil {
			t.Fatalf("Failed to create %s: %v", username, err)
		}
	}

	if got := store.ListOperators(); len(got) != 3 {
		t.Errorf("Expected 3 operators, got %d", len(got))
	}
}

// TestGenerateAPIKey tests raw key generation
func TestGenerateAPIKey(t *testing.T) {
	key, prefix, err := generateAPIKey()
	if err != nil {
		t.Fatalf("generateAPIKey failed: %v", err)
	}
	if prefix != KeyPrefixTest && prefix != KeyPrefixProduction {
		t.Errorf("Unexpected prefix: %s", prefix)
	}
	if !strings.HasPrefix(key, prefix) {
		t.Errorf("Key %s should start with its prefix %s", key, prefix)
	}

	// Two generated keys must differ
	key2, _, err := generateAPIKey()
	if err != nil {
		t.Fatalf("generateAPIKey failed: %v", err)
	}
	if key == key2 {
		t.Error("Generated keys should be unique")
	}
}
