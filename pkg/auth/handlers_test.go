package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHandler(t *testing.T) (*AuthHandler, *OperatorStore, *JWTManager) {
	t.Helper()

	store := NewOperatorStore()
	jwtManager, err := NewJWTManager("test-secret-key-must-be-at-least-32-characters-long", DefaultTokenDuration, DefaultRefreshTokenDuration)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}
	return NewAuthHandler(store, jwtManager), store, jwtManager
}

// TestAuthHandler_Login tests the login endpoint
func TestAuthHandler_Login(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	_, err := store.CreateOperator("alice", "AlicePass123!", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create test operator: %v", err)
	}

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Valid login",
			requestBody: map[string]interface{}{
				"username": "alice",
				"password": "AlicePass123!",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var response map[string]interface{}
				if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}

				if response["access_token"] == nil || response["access_token"].(string) == "" {
					t.Error("Expected non-empty access_token")
				}
				if response["refresh_token"] == nil || response["refresh_token"].(string) == "" {
					t.Error("Expected non-empty refresh_token")
				}
				operator, ok := response["operator"].(map[string]interface{})
				if !ok {
					t.Fatal("Expected operator object in response")
				}
				if operator["clearance"] != "classified" {
					t.Errorf("Expected clearance 'classified' for admin, got %v", operator["clearance"])
				}
			},
		},
		{
			name: "Wrong password",
			requestBody: map[string]interface{}{
				"username": "alice",
				"password": "WrongPass123!",
			},
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  nil,
		},
		{
			name: "Non-existent operator",
			requestBody: map[string]interface{}{
				"username": "nonexistent",
				"password": "password",
			},
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  nil,
		},
		{
			name: "Empty username",
			requestBody: map[string]interface{}{
				"username": "",
				"password": "password",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name: "Empty password",
			requestBody: map[string]interface{}{
				"username": "alice",
				"password": "",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name:           "Invalid JSON",
			requestBody:    nil,
			expectedStatus: http.StatusBadRequest,
			checkResponse:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if tt.requestBody != nil {
				body, _ = json.Marshal(tt.requestBody)
			} else {
				body = []byte("invalid json")
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, rr)
			}
		})
	}
}

// TestAuthHandler_Refresh tests the refresh token endpoint
func TestAuthHandler_Refresh(t *testing.T) {
	handler, store, jwtManager := newTestHandler(t)

	operator, err := store.CreateOperator("alice", "AlicePass123!", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to create test operator: %v", err)
	}

	validRefreshToken, err := jwtManager.GenerateRefreshToken(operator.ID)
	if err != nil {
		t.Fatalf("Failed to generate refresh token: %v", err)
	}

	// Refresh token for an operator that was deleted afterwards
	ghost, err := store.CreateOperator("ghost", "GhostPass123!", RoleViewer)
	if err != nil {
		t.Fatalf("Failed to create ghost operator: %v", err)
	}
	ghostRefreshToken, err := jwtManager.GenerateRefreshToken(ghost.ID)
	if err != nil {
		t.Fatalf("Failed to generate ghost refresh token: %v", err)
	}
	if err := store.DeleteOperator(ghost.ID); err != nil {
		t.Fatalf("Failed to delete ghost operator: %v", err)
	}

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Valid refresh token",
			requestBody: map[string]interface{}{
				"refresh_token": validRefreshToken,
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var response map[string]interface{}
				if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}

				if response["access_token"] == nil || response["access_token"].(string) == "" {
					t.Error("Expected non-empty access_token")
				}
			},
		},
		{
			name: "Invalid refresh token",
			requestBody: map[string]interface{}{
				"refresh_token": "invalid.token.here",
			},
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  nil,
		},
		{
			name: "Deleted operator",
			requestBody: map[string]interface{}{
				"refresh_token": ghostRefreshToken,
			},
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  nil,
		},
		{
			name: "Empty refresh token",
			requestBody: map[string]interface{}{
				"refresh_token": "",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, rr)
			}
		})
	}
}

// TestAuthHandler_Me tests the current operator endpoint
func TestAuthHandler_Me(t *testing.T) {
	handler, store, jwtManager := newTestHandler(t)

	operator, err := store.CreateOperator("alice", "AlicePass123!", RoleOperator)
	if err != nil {
		t.Fatalf("Failed to create test operator: %v", err)
	}

	validToken, err := jwtManager.GenerateToken(operator.ID, operator.Username, operator.Role)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tests := []struct {
		name           string
		authToken      string
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "Valid token",
			authToken:      validToken,
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var response map[string]interface{}
				if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}

				operatorObj, ok := response["operator"].(map[string]interface{})
				if !ok {
					t.Fatal("Expected operator object in response")
				}

				if operatorObj["username"] != "alice" {
					t.Errorf("Expected username 'alice', got %v", operatorObj["username"])
				}
				if operatorObj["role"] != RoleOperator {
					t.Errorf("Expected role %s, got %v", RoleOperator, operatorObj["role"])
				}
				if operatorObj["clearance"] != "restricted" {
					t.Errorf("Expected clearance 'restricted', got %v", operatorObj["clearance"])
				}
			},
		},
		{
			name:           "Missing token",
			authToken:      "",
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  nil,
		},
		{
			name:           "Invalid token",
			authToken:      "invalid.token.here",
			expectedStatus: http.StatusUnauthorized,
			checkResponse:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)

			if tt.authToken != "" {
				req.Header.Set("Authorization", "Bearer "+tt.authToken)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, rr)
			}
		})
	}
}

// TestAuthHandler_Routes tests that routes are properly configured
func TestAuthHandler_Routes(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	tests := []struct {
		method         string
		path           string
		expectedStatus int
	}{
		{http.MethodPost, "/auth/login", http.StatusBadRequest},   // No body
		{http.MethodPost, "/auth/refresh", http.StatusBadRequest}, // No body
		{http.MethodGet, "/auth/me", http.StatusUnauthorized},     // No auth
		{http.MethodGet, "/auth/login", http.StatusMethodNotAllowed},
		{http.MethodGet, "/auth/unknown", http.StatusNotFound}, // Unknown route
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}
