package graphql

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/xepoctpat/H3X-sub004/pkg/audit"
)

type contextKey string

const clearanceContextKey contextKey = "clearance"

// ContextWithClearance attaches the caller's audit clearance to a request
// context. The audit resolver reads it; everything else ignores it.
func ContextWithClearance(ctx context.Context, level audit.SecurityLevel) context.Context {
	return context.WithValue(ctx, clearanceContextKey, level)
}

// ClearanceFromContext returns the attached clearance, defaulting to public
// for anonymous callers.
func ClearanceFromContext(ctx context.Context) audit.SecurityLevel {
	if ctx == nil {
		return audit.LevelPublic
	}
	if level, ok := ctx.Value(clearanceContextKey).(audit.SecurityLevel); ok {
		return level
	}
	return audit.LevelPublic
}

// Request represents a GraphQL HTTP request
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response represents a GraphQL HTTP response
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error represents a GraphQL error
type Error struct {
	Message string `json:"message"`
}

// ExecuteQuery executes a GraphQL query against a schema
func ExecuteQuery(ctx context.Context, query string, schema graphql.Schema) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       ctx,
	})
}

// ExecuteQueryWithVariables executes a GraphQL query with variables
func ExecuteQueryWithVariables(ctx context.Context, query string, schema graphql.Schema, variables map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: variables,
		Context:        ctx,
	})
}

// Handler serves GraphQL HTTP requests. CORS and auth sit in front of it
// as middleware; the handler only parses and executes.
type Handler struct {
	schema graphql.Schema
}

// NewHandler creates a new GraphQL HTTP handler
func NewHandler(schema graphql.Schema) *Handler {
	return &Handler{
		schema: schema,
	}
}

// ServeHTTP handles HTTP requests for GraphQL queries
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Preflight requests arrive here when no CORS middleware is mounted
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var result *graphql.Result
	if len(req.Variables) > 0 {
		result = ExecuteQueryWithVariables(r.Context(), req.Query, h.schema, req.Variables)
	} else {
		result = ExecuteQuery(r.Context(), req.Query, h.schema)
	}

	response := Response{
		Data: result.Data,
	}

	// Convert graphql errors to our error format
	if result.HasErrors() {
		response.Errors = make([]Error, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = Error{
				Message: err.Message,
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
