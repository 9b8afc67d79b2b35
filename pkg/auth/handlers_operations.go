package auth

import (
	"encoding/json"
	"log"
	"net/http"
)

func operatorResponse(op *Operator) OperatorResponse {
	return OperatorResponse{
		ID:        op.ID,
		Username:  op.Username,
		Role:      op.Role,
		Clearance: ClearanceForRole(op.Role).String(),
	}
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" {
		h.respondError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "Password is required")
		return
	}

	operator, err := h.operators.GetOperatorByUsername(req.Username)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !h.operators.VerifyPassword(operator, req.Password) {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, err := h.jwtManager.GenerateToken(operator.ID, operator.Username, operator.Role)
	if err != nil {
		log.Printf("Failed to generate access token: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(operator.ID)
	if err != nil {
		log.Printf("Failed to generate refresh token: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	response := LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Operator:     operatorResponse(operator),
	}

	h.respondJSON(w, http.StatusOK, response)
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.RefreshToken == "" {
		h.respondError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	operatorID, err := h.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	// Re-read the operator so a role change or deletion takes effect on refresh
	operator, err := h.operators.GetOperatorByID(operatorID)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Operator no longer exists")
		return
	}

	accessToken, err := h.jwtManager.GenerateToken(operator.ID, operator.Username, operator.Role)
	if err != nil {
		log.Printf("Failed to generate access token: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	h.respondJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := h.extractAndValidateToken(r)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	operator, err := h.operators.GetOperatorByID(claims.OperatorID)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Operator no longer exists")
		return
	}

	h.respondJSON(w, http.StatusOK, MeResponse{Operator: operatorResponse(operator)})
}
