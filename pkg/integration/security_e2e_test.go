package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xepoctpat/H3X-sub004/pkg/api"
	"github.com/xepoctpat/H3X-sub004/pkg/audit"
	"github.com/xepoctpat/H3X-sub004/pkg/auth"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/lattice"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
)

// TestE2E_SecurityFullStack walks the whole security surface over a
// live listener: operator login, clearance enforcement on mutations,
// API keys, audit visibility per clearance, and token refresh.
func TestE2E_SecurityFullStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	cfg := config.Default()
	cfg.Server.AuthSecret = "integration-secret-0123456789abcdef"

	eng, err := engine.New(engine.Options{Config: cfg})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	server, err := api.NewServer(api.Options{
		Config:  cfg.Server,
		Engine:  eng,
		Metrics: metrics.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	if !server.AuthEnabled() {
		t.Fatal("Auth should be enabled when a secret is configured")
	}

	admin, err := server.Operators().CreateOperator("admin", "AdminPass123!", "admin")
	if err != nil {
		t.Fatalf("Failed to create admin operator: %v", err)
	}
	if _, err := server.Operators().CreateOperator("watcher", "WatcherPass123!", "viewer"); err != nil {
		t.Fatalf("Failed to create viewer operator: %v", err)
	}

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	var adminLogin auth.LoginResponse
	var firstNodeID string

	t.Run("Phase1_Authentication", func(t *testing.T) {
		adminLogin = loginAs(t, ts.URL, "admin", "AdminPass123!")
		if adminLogin.AccessToken == "" {
			t.Fatal("No access token in login response")
		}
		if adminLogin.Operator.Clearance != "classified" {
			t.Errorf("Admin clearance = %q, want classified", adminLogin.Operator.Clearance)
		}

		// Wrong password must not leak whether the account exists.
		resp := postJSON(t, ts.URL+"/auth/login", "", auth.LoginRequest{
			Username: "admin",
			Password: "NotThePassword1!",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Bad password login status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Phase2_ClearanceEnforcement", func(t *testing.T) {
		// Anonymous mutation is rejected outright.
		resp := postJSON(t, ts.URL+"/api/nodes", "", api.CreateNodeRequest{Kind: "positive", Energy: 1.0})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Anonymous create status = %d, want 401", resp.StatusCode)
		}

		// A viewer authenticates fine but lacks write clearance.
		viewerLogin := loginAs(t, ts.URL, "watcher", "WatcherPass123!")
		resp = postJSON(t, ts.URL+"/api/nodes", viewerLogin.AccessToken, api.CreateNodeRequest{Kind: "positive", Energy: 1.0})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Viewer create status = %d, want 403", resp.StatusCode)
		}

		// The admin goes through.
		node := createNodeAs(t, ts.URL, adminLogin.AccessToken, "positive")
		firstNodeID = node.ID
	})

	t.Run("Phase3_APIKeys", func(t *testing.T) {
		key, keyString, err := server.APIKeys().CreateKey(admin.ID, "ops-automation", []string{"read", "act"}, time.Hour)
		if err != nil {
			t.Fatalf("Failed to create API key: %v", err)
		}

		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/nodes", marshalBody(t, api.CreateNodeRequest{Kind: "negative", Energy: 1.0}))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", keyString)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("API key request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("API key create status = %d, want 201, body: %s", resp.StatusCode, body)
		}

		// A revoked key stops working immediately.
		if err := server.APIKeys().RevokeKey(key.ID); err != nil {
			t.Fatalf("Failed to revoke key: %v", err)
		}
		req, _ = http.NewRequest(http.MethodPost, ts.URL+"/api/nodes", marshalBody(t, api.CreateNodeRequest{Kind: "coupler", Energy: 1.0}))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", keyString)
		resp, err = http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Revoked key request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Revoked key status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Phase4_AuditVisibility", func(t *testing.T) {
		// Finish a triangle, then provoke one restricted rejection: a
		// transmit from an idle source fails the state rules.
		second := createNodeAs(t, ts.URL, adminLogin.AccessToken, "coupler")
		nodes := listNodeIDs(t, ts.URL)
		if len(nodes) != 3 {
			t.Fatalf("Have %d nodes, want 3", len(nodes))
		}
		resp := postJSON(t, ts.URL+"/api/patches", adminLogin.AccessToken, api.CreatePatchRequest{NodeIDs: nodes})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("Create patch status = %d, want 201, body: %s", resp.StatusCode, body)
		}

		resp = postJSON(t, ts.URL+"/api/actions", adminLogin.AccessToken, api.ActionRequest{
			Type:     "transmit",
			SourceID: firstNodeID,
			TargetID: second.ID,
			Cost:     0.1,
			Duration: 1,
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Submit action status = %d, want 200", resp.StatusCode)
		}

		// 4 public creation entries (3 nodes, 1 patch) plus a restricted
		// rejection. Anonymous callers see only the former.
		anon := fetchAudit(t, ts.URL, "")
		if anon.Clearance != "public" {
			t.Errorf("Anonymous clearance = %q, want public", anon.Clearance)
		}
		if anon.Count != 4 {
			t.Errorf("Anonymous sees %d entries, want 4", anon.Count)
		}
		for _, entry := range anon.Entries {
			if entry.Level != audit.LevelPublic {
				t.Errorf("Anonymous received entry at level %v", entry.Level)
			}
		}

		adminAudit := fetchAudit(t, ts.URL, adminLogin.AccessToken)
		if adminAudit.Clearance != "classified" {
			t.Errorf("Admin clearance = %q, want classified", adminAudit.Clearance)
		}
		if adminAudit.Count != 5 {
			t.Errorf("Admin sees %d entries, want 5", adminAudit.Count)
		}
		rejections := 0
		for _, entry := range adminAudit.Entries {
			if entry.Status == audit.StatusRejected {
				rejections++
			}
		}
		if rejections != 1 {
			t.Errorf("Admin sees %d rejections, want 1", rejections)
		}
	})

	t.Run("Phase5_TokenRefresh", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/auth/refresh", "", auth.RefreshRequest{RefreshToken: adminLogin.RefreshToken})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Refresh status = %d, want 200", resp.StatusCode)
		}
		var refreshed auth.RefreshResponse
		if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
			t.Fatalf("Failed to decode refresh response: %v", err)
		}
		if refreshed.AccessToken == "" {
			t.Fatal("Refresh returned no access token")
		}

		// The refreshed token carries the same write clearance.
		createNodeAs(t, ts.URL, refreshed.AccessToken, "negative")
	})
}

// Helpers

func marshalBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, marshalBody(t, body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request to %s failed: %v", url, err)
	}
	return resp
}

func loginAs(t *testing.T, baseURL, username, password string) auth.LoginResponse {
	t.Helper()

	resp := postJSON(t, baseURL+"/auth/login", "", auth.LoginRequest{Username: username, Password: password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Login as %s failed: status=%d, body=%s", username, resp.StatusCode, body)
	}

	var login auth.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	return login
}

func createNodeAs(t *testing.T, baseURL, token, kind string) lattice.Node {
	t.Helper()

	resp := postJSON(t, baseURL+"/api/nodes", token, api.CreateNodeRequest{Kind: kind, Energy: 1.0})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Create %s node failed: status=%d, body=%s", kind, resp.StatusCode, body)
	}

	var node lattice.Node
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		t.Fatalf("Failed to decode node: %v", err)
	}
	return node
}

func listNodeIDs(t *testing.T, baseURL string) []string {
	t.Helper()

	resp, err := http.Get(baseURL + "/api/nodes")
	if err != nil {
		t.Fatalf("List nodes failed: %v", err)
	}
	defer resp.Body.Close()

	var nodes api.NodesResponse
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		t.Fatalf("Failed to decode node list: %v", err)
	}

	ids := make([]string, 0, len(nodes.Nodes))
	for _, n := range nodes.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func fetchAudit(t *testing.T, baseURL, token string) api.AuditResponse {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/audit", nil)
	if err != nil {
		t.Fatalf("Failed to build audit request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Audit request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Audit status = %d, want 200, body: %s", resp.StatusCode, body)
	}

	var trail api.AuditResponse
	if err := json.NewDecoder(resp.Body).Decode(&trail); err != nil {
		t.Fatalf("Failed to decode audit response: %v", err)
	}
	return trail
}
