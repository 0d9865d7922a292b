// Package api exposes HTTP handlers for the skincycle service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Iviolo/SkinCycling-Coach/internal/auth"
	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/observability"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence"
	"github.com/Iviolo/SkinCycling-Coach/internal/rescue"
)

// SessionHeader identifies the client session that owns rescue mode.
const SessionHeader = "X-Session-ID"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	rescue  *rescue.Registry
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, registry *rescue.Registry, logger *zap.Logger) *Handler {
	if registry == nil {
		registry = rescue.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, rescue: registry, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/today", h.today)
	mux.HandleFunc("GET /v1/logs", h.listLogs)
	mux.HandleFunc("GET /v1/logs/{date}", h.getLog)
	mux.HandleFunc("PUT /v1/logs/{date}", h.putLog)
	mux.HandleFunc("POST /v1/logs/{date}/complete", h.completeLog)
	mux.HandleFunc("POST /v1/logs/{date}/reopen", h.reopenLog)
	mux.HandleFunc("PATCH /v1/logs/{date}/condition", h.updateCondition)
	mux.HandleFunc("GET /v1/resolve", h.resolve)
	mux.HandleFunc("GET /v1/stats", h.stats)
	mux.HandleFunc("GET /v1/calendar", h.calendarMonth)
	mux.HandleFunc("GET /v1/settings", h.getSettings)
	mux.HandleFunc("PUT /v1/settings", h.putSettings)
	mux.HandleFunc("GET /v1/start-date", h.getStartDate)
	mux.HandleFunc("PUT /v1/start-date", h.putStartDate)
	mux.HandleFunc("GET /v1/profile", h.getProfile)
	mux.HandleFunc("PUT /v1/profile", h.putProfile)
	mux.HandleFunc("POST /v1/cycle/switch", h.switchCycle)
	mux.HandleFunc("POST /v1/rescue", h.activateRescue)
	mux.HandleFunc("DELETE /v1/rescue", h.deactivateRescue)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize returns the caller's profile ID when the token carries scope.
// The write scope implies read.
func authorize(w http.ResponseWriter, r *http.Request, scope string) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	allowed := claims.HasScope(scope)
	if scope == auth.ScopeRoutineRead && claims.HasScope(auth.ScopeRoutineWrite) {
		allowed = true
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return "", false
	}
	profileID, ok := auth.ProfileID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "token has no subject")
		return "", false
	}
	return profileID, true
}

func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}

	query := r.URL.Query()
	session := h.rescue.Session(profileID, r.Header.Get(SessionHeader), h.service.Today())
	view, err := h.service.BuildToday(r.Context(), profileID, domain.TodayInput{
		Rescue:    session,
		AMChecked: splitList(query.Get("am_checked")),
		PMChecked: splitList(query.Get("pm_checked")),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodayView(view))
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	log, err := h.service.GetLog(r.Context(), profileID, date)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) putLog(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	var log domain.DailyLog
	if !decodeBody(w, r, &log) {
		return
	}
	if !log.DateKey.IsZero() && log.DateKey != date {
		writeError(w, http.StatusBadRequest, "validation_failed", "body date does not match path")
		return
	}
	log.DateKey = date

	if err := h.service.UpsertLog(r.Context(), profileID, log); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) completeLog(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	var req CompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	// Rescue only substitutes tonight's steps for the session that switched it on.
	today := h.service.Today()
	rescueActive := date == today && h.rescue.Session(profileID, r.Header.Get(SessionHeader), today).Active()

	log, err := h.service.CompletePeriod(r.Context(), profileID, domain.CompleteInput{
		Date:           date,
		Period:         period,
		CheckedStepIDs: req.CheckedStepIDs,
		Rescue:         rescueActive,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	observability.RecordTransition(string(period), "completed")
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) reopenLog(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	var req ReopenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	log, err := h.service.ReopenPeriod(r.Context(), profileID, date, period)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	observability.RecordTransition(string(period), "reopened")
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) updateCondition(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	date, ok := pathDate(w, r)
	if !ok {
		return
	}

	var req ConditionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SkinCondition == nil && req.Notes == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "skin_condition or notes is required")
		return
	}

	log, err := h.service.UpdateCondition(r.Context(), profileID, date, domain.ConditionInput{
		SkinCondition: req.SkinCondition,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	query := r.URL.Query()

	if rawFrom, rawTo := query.Get("from"), query.Get("to"); rawFrom != "" || rawTo != "" {
		from, err := calendar.Parse(rawFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid from parameter")
			return
		}
		to, err := calendar.Parse(rawTo)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid to parameter")
			return
		}
		logs, err := h.service.LogsBetween(r.Context(), profileID, from, to)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ListLogsResponse{Items: nonNilLogs(logs)})
		return
	}

	limit := defaultPageSize
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(query.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	logs, next, err := h.service.History(r.Context(), profileID, cursor, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListLogsResponse{
		Items:      nonNilLogs(logs),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	date, ok := queryDate(w, r, "date", h.service.Today())
	if !ok {
		return
	}

	res, err := h.service.Resolve(r.Context(), profileID, date)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResolutionView(res))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	today, ok := queryDate(w, r, "today", h.service.Today())
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), profileID, today)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Today:  stats.Today,
		Streak: stats.Streak,
		Month:  stats.Month,
		Week:   stats.Week,
	})
}

func (h *Handler) calendarMonth(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}

	day := h.service.Today().MonthStart()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := calendar.Parse(raw + "-01")
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "month must be YYYY-MM")
			return
		}
		day = parsed
	}

	days, err := h.service.Month(r.Context(), profileID, day)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := CalendarResponse{Month: day.String()[:7], Days: make([]CalendarDayView, 0, len(days))}
	for _, d := range days {
		resp.Days = append(resp.Days, toCalendarDayView(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	settings, err := h.service.Settings(r.Context(), profileID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	var settings domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		if errors.Is(err, domain.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := h.service.SaveSettings(r.Context(), profileID, settings); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) getStartDate(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	start, err := h.service.StartDate(r.Context(), profileID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StartDateBody{StartDate: start})
}

func (h *Handler) putStartDate(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	var req StartDateBody
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "validation_failed", "start_date is required")
		return
	}
	if err := h.service.SetStartDate(r.Context(), profileID, req.StartDate); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineRead)
	if !ok {
		return
	}
	name, err := h.service.UserName(r.Context(), profileID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileBody{UserName: name})
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	var req ProfileBody
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.SetUserName(r.Context(), profileID, req.UserName); err != nil {
		h.writeDomainError(w, err)
		return
	}
	name, err := h.service.UserName(r.Context(), profileID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileBody{UserName: name})
}

func (h *Handler) switchCycle(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	var req SwitchCycleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.service.SwitchCycle(r.Context(), profileID, req.Ordinal)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResolutionView(res))
}

func (h *Handler) activateRescue(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sessionID == "" {
		sessionID = rescue.NewSessionID()
	}

	today := h.service.Today()
	log, err := h.service.GetLog(r.Context(), profileID, today)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	res, err := h.service.Resolve(r.Context(), profileID, today)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	steps := h.rescue.Activate(profileID, sessionID, today)
	w.Header().Set(SessionHeader, sessionID)
	writeJSON(w, http.StatusOK, RescueResponse{
		SessionID: sessionID,
		Active:    true,
		Eligible:  domain.IsRescueEligible(log, res.Night),
		PMSteps:   steps,
	})
}

func (h *Handler) deactivateRescue(w http.ResponseWriter, r *http.Request) {
	profileID, ok := authorize(w, r, auth.ScopeRoutineWrite)
	if !ok {
		return
	}
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing "+SessionHeader+" header")
		return
	}

	h.rescue.Deactivate(profileID, sessionID)

	res, err := h.service.Resolve(r.Context(), profileID, h.service.Today())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	var session domain.RescueSession
	writeJSON(w, http.StatusOK, RescueResponse{
		SessionID: sessionID,
		Active:    false,
		PMSteps:   session.PMSteps(res.Night),
	})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrIncompleteSteps):
		writeError(w, http.StatusUnprocessableEntity, "incomplete_steps", err.Error())
	case errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidSkinCondition),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, domain.ErrInvalidOrdinal),
		errors.Is(err, calendar.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func pathDate(w http.ResponseWriter, r *http.Request) (calendar.Date, bool) {
	date, err := calendar.Parse(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return calendar.Date{}, false
	}
	return date, true
}

func queryDate(w http.ResponseWriter, r *http.Request, name string, fallback calendar.Date) (calendar.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	date, err := calendar.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid "+name+" parameter")
		return calendar.Date{}, false
	}
	return date, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func nonNilLogs(logs []domain.DailyLog) []domain.DailyLog {
	if logs == nil {
		return []domain.DailyLog{}
	}
	return logs
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
