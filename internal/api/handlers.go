package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"confluence-engine/internal/auth"
	"confluence-engine/internal/engine"
)

// normalizeSymbol upper-cases and validates the :symbol path parameter
func normalizeSymbol(c *gin.Context) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		errorResponse(c, http.StatusBadRequest, "Symbol is required")
		return "", false
	}
	return symbol, true
}

// handleEvaluate runs a fresh evaluation for a symbol
func (s *Server) handleEvaluate(c *gin.Context) {
	symbol, ok := normalizeSymbol(c)
	if !ok {
		return
	}

	stored, err := s.evaluator.Evaluate(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Evaluation failed: "+err.Error())
		return
	}

	if s.reports != nil {
		s.reports.Invalidate(c.Request.Context(), symbol)
	}

	successResponse(c, stored)
}

// handleGetRecommendations lists the latest recommendation per symbol
func (s *Server) handleGetRecommendations(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50, 200)

	rows, err := s.evaluator.AllRecommendations(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch recommendations")
		return
	}
	if rows == nil {
		successResponse(c, []struct{}{})
		return
	}
	successResponse(c, rows)
}

// handleGetRecommendation returns the latest recommendation for one symbol
func (s *Server) handleGetRecommendation(c *gin.Context) {
	symbol, ok := normalizeSymbol(c)
	if !ok {
		return
	}

	rec, err := s.evaluator.LatestRecommendation(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch recommendation")
		return
	}
	if rec == nil {
		errorResponse(c, http.StatusNotFound, "No recommendation for "+symbol)
		return
	}
	successResponse(c, rec)
}

// handleGetEvaluation returns the latest full evaluation for a symbol
func (s *Server) handleGetEvaluation(c *gin.Context) {
	symbol, ok := normalizeSymbol(c)
	if !ok {
		return
	}

	eval, err := s.evaluator.LatestEvaluation(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch evaluation")
		return
	}
	if eval == nil {
		errorResponse(c, http.StatusNotFound, "No evaluation for "+symbol)
		return
	}
	successResponse(c, eval)
}

// handleGetEvaluationHistory lists past evaluation rows for a symbol
func (s *Server) handleGetEvaluationHistory(c *gin.Context) {
	symbol, ok := normalizeSymbol(c)
	if !ok {
		return
	}
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "History requires a database")
		return
	}

	limit := parseLimit(c.Query("limit"), 50, 500)
	rows, err := s.repo.GetEvaluationHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch evaluation history")
		return
	}
	successResponse(c, rows)
}

// handleGetProfiles returns the active profile set
func (s *Server) handleGetProfiles(c *gin.Context) {
	successResponse(c, s.evaluator.Profiles())
}

// handleListProfileVersions lists stored calibration versions
func (s *Server) handleListProfileVersions(c *gin.Context) {
	if s.repo == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profile history requires a database")
		return
	}
	rows, err := s.repo.ListProfileVersions(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch profile versions")
		return
	}
	successResponse(c, rows)
}

// handleUpdateProfiles activates a new calibration profile set
func (s *Server) handleUpdateProfiles(c *gin.Context) {
	var ps engine.ProfileSet
	if err := c.ShouldBindJSON(&ps); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid profile set: "+err.Error())
		return
	}

	if err := s.evaluator.UpdateProfiles(c.Request.Context(), &ps); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	successResponse(c, gin.H{"message": "Profile set activated", "version": ps.Version})
}

// handleGetReport renders the Markdown report for a symbol's latest
// evaluation
func (s *Server) handleGetReport(c *gin.Context) {
	symbol, ok := normalizeSymbol(c)
	if !ok {
		return
	}

	eval, err := s.evaluator.LatestEvaluation(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch evaluation")
		return
	}
	if eval == nil {
		errorResponse(c, http.StatusNotFound, "No evaluation for "+symbol)
		return
	}

	rendered, err := s.reports.Generate(c.Request.Context(), eval)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(rendered))
}

// handleGetWatchlist lists the symbols enrolled in the sweep
func (s *Server) handleGetWatchlist(c *gin.Context) {
	entries, err := s.evaluator.Watchlist(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch watchlist")
		return
	}
	if entries == nil {
		successResponse(c, []struct{}{})
		return
	}
	successResponse(c, entries)
}

type watchlistRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// handleAddToWatchlist enrolls a symbol
func (s *Server) handleAddToWatchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Symbol is required")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		errorResponse(c, http.StatusBadRequest, "Symbol is required")
		return
	}

	if err := s.evaluator.AddToWatchlist(c.Request.Context(), symbol); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"message": "Symbol added to watchlist", "symbol": symbol})
}

// handleRemoveFromWatchlist drops a symbol
func (s *Server) handleRemoveFromWatchlist(c *gin.Context) {
	symbol, ok := normalizeSymbol(c)
	if !ok {
		return
	}

	if err := s.evaluator.RemoveFromWatchlist(c.Request.Context(), symbol); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"message": "Symbol removed from watchlist", "symbol": symbol})
}

// handleLogin authenticates a user and issues an access token
func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	resp, err := s.authService.Login(c.Request.Context(), req)
	if err != nil {
		var authErr auth.AuthError
		if errors.As(err, &authErr) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   authErr.Code,
				"message": authErr.Message,
			})
			return
		}
		errorResponse(c, http.StatusInternalServerError, "Login failed")
		return
	}

	successResponse(c, resp)
}

// handleRegister creates a new account
func (s *Server) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.authService.Register(c.Request.Context(), req)
	if err != nil {
		var authErr auth.AuthError
		if errors.As(err, &authErr) {
			status := http.StatusBadRequest
			if errors.Is(err, auth.ErrEmailExists) {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{
				"error":   authErr.Code,
				"message": authErr.Message,
			})
			return
		}
		errorResponse(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": user})
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
