package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamlog-backend/internal/domain/dream"
	"dreamlog-backend/internal/domain/insight"
	"dreamlog-backend/internal/middleware"
	"dreamlog-backend/internal/repository"
	"dreamlog-backend/internal/service/patterns"
	"dreamlog-backend/pkg/api"
	appErrors "dreamlog-backend/pkg/errors"
)

const (
	defaultThemeLimit = 10
	maxThemeLimit     = 100
)

// Analyzer is the inbound pattern operation.
type Analyzer interface {
	AnalyzeDreamForPatterns(ctx context.Context, req patterns.AnalyzeRequest) (patterns.Result, error)
}

// InsightReader is the read side of the pattern engine.
type InsightReader interface {
	GetNightmarePatternSummary(ctx context.Context, userID string, tier dream.Tier) (*insight.NightmareSummary, error)
	GetRecurringCycles(ctx context.Context, userID string, tier dream.Tier) ([]insight.CycleView, error)
	GetThemeFrequencies(ctx context.Context, userID string, limit int) ([]dream.ThemeCounter, error)
	GetInsight(ctx context.Context, userID string, tier dream.Tier) (insight.Insight, error)
}

// PatternHandler serves the pattern routes.
type PatternHandler struct {
	analyzer Analyzer
	insights InsightReader
	settings repository.SettingsStore
	logger   *zap.Logger
}

// NewPatternHandler creates a PatternHandler.
func NewPatternHandler(analyzer Analyzer, insights InsightReader, settings repository.SettingsStore, logger *zap.Logger) *PatternHandler {
	return &PatternHandler{
		analyzer: analyzer,
		insights: insights,
		settings: settings,
		logger:   logger,
	}
}

// caller returns the identity attached by middleware.Identity.
func caller(r *http.Request) (string, dream.Tier, bool) {
	userID, ok := middleware.UserID(r.Context())
	return userID, middleware.TierFrom(r.Context()), ok
}

// AnalyzeDream handles POST /api/v1/dreams/{dreamID}/analyze.
func (h *PatternHandler) AnalyzeDream(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	dreamID := strings.TrimSpace(chi.URLParam(r, "dreamID"))
	if dreamID == "" {
		api.Error(w, http.StatusBadRequest, "dream id is required")
		return
	}

	var req api.AnalyzeDreamRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	var occurredAt time.Time
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			handleServiceError(w, r, h.logger, appErrors.NewValidation("occurredAt must be RFC3339"))
			return
		}
		occurredAt = t
	}

	result, err := h.analyzer.AnalyzeDreamForPatterns(r.Context(), patterns.AnalyzeRequest{
		UserID:     userID,
		DreamID:    dreamID,
		Text:       req.Text,
		Tier:       tier,
		OccurredAt: occurredAt,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := api.AnalyzeDreamResponse{
		Pattern: api.DreamPatternResponse{
			DreamID:    dreamID,
			Type:       string(result.Pattern.Type),
			Themes:     nonNil(result.Pattern.Themes),
			Emotions:   nonNil(result.Pattern.Emotions),
			Symbols:    nonNil(result.Pattern.Symbols),
			Confidence: result.Pattern.Confidence,
		},
		NightmareRecorded: result.NightmareRecorded,
		Failed:            result.Failed,
	}
	if result.Cycle != nil {
		resp.Cycle = &api.CycleOutcome{
			CycleID:    result.Cycle.CycleID,
			Decision:   string(result.Cycle.Decision),
			Similarity: result.Cycle.Similarity,
		}
	}
	api.Success(w, http.StatusOK, resp)
}

// GetNightmares handles GET /api/v1/patterns/nightmares. No history yields 204.
func (h *PatternHandler) GetNightmares(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	summary, err := h.insights.GetNightmarePatternSummary(r.Context(), userID, tier)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if summary == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	api.Success(w, http.StatusOK, summary)
}

// CyclesResponse is the body of GET /api/v1/patterns/cycles.
type CyclesResponse struct {
	Cycles []insight.CycleView `json:"cycles"`
}

// GetCycles handles GET /api/v1/patterns/cycles.
func (h *PatternHandler) GetCycles(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	views, err := h.insights.GetRecurringCycles(r.Context(), userID, tier)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if views == nil {
		views = []insight.CycleView{}
	}
	api.Success(w, http.StatusOK, CyclesResponse{Cycles: views})
}

// GetThemes handles GET /api/v1/patterns/themes?limit=N.
func (h *PatternHandler) GetThemes(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	limit := defaultThemeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxThemeLimit {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	counters, err := h.insights.GetThemeFrequencies(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	resp := api.ThemeFrequencyResponse{Themes: make([]api.ThemeFrequency, 0, len(counters))}
	for _, c := range counters {
		resp.Themes = append(resp.Themes, api.ThemeFrequency{
			Theme:        c.Theme,
			Count:        c.Count,
			LastOccurred: c.LastOccurred.UTC().Format(time.RFC3339),
		})
	}
	api.Success(w, http.StatusOK, resp)
}

// GetInsight handles GET /api/v1/patterns/insight.
func (h *PatternHandler) GetInsight(w http.ResponseWriter, r *http.Request) {
	userID, tier, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	in, err := h.insights.GetInsight(r.Context(), userID, tier)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, in)
}

// GetSettings handles GET /api/v1/patterns/settings.
func (h *PatternHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	s, err := h.settings.GetSettings(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

// PutSettings handles PUT /api/v1/patterns/settings.
func (h *PatternHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := caller(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req api.TrackingSettings
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	s := dream.Settings{
		TrackNightmares:      *req.TrackNightmares,
		TrackRecurringDreams: *req.TrackRecurringDreams,
	}
	if err := h.settings.PutSettings(r.Context(), userID, s); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("pattern settings updated",
		zap.String("userID", userID),
		zap.Bool("trackNightmares", s.TrackNightmares),
		zap.Bool("trackRecurringDreams", s.TrackRecurringDreams))
	api.Success(w, http.StatusOK, s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
