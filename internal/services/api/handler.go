package api

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/ontogenic.space/internal/platform/errors"
	"github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit"
	"github.com/louisbranch/ontogenic.space/internal/services/run/storage"
	"github.com/louisbranch/ontogenic.space/internal/survey"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/websocket"
)

// serviceName identifies this API in health responses and trace spans.
const serviceName = "ontogenic-machine-api"

// handler serves the run service JSON API.
type handler struct {
	service *domain.Service
	feed    *runFeed
}

// newHandler composes the routed API with its middleware stack. The
// OTel handler wraps outermost so the audit middleware can read the
// request span.
func newHandler(service *domain.Service, feed *runFeed, emitter *audit.Emitter) http.Handler {
	h := &handler{service: service, feed: feed}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /survey", h.getSurvey)
	mux.HandleFunc("GET /schema/{model}", h.getSchema)
	mux.HandleFunc("POST /score", h.score)
	mux.HandleFunc("POST /place", h.place)
	mux.HandleFunc("POST /run", h.runImmediate)
	mux.HandleFunc("POST /runs", h.createRun)
	mux.HandleFunc("GET /runs", h.listRuns)
	mux.HandleFunc("GET /runs/stats", h.runStats)
	mux.HandleFunc("GET /runs/{id}", h.getRun)
	mux.HandleFunc("POST /runs/compare", h.compareRuns)
	mux.HandleFunc("POST /runs/projection", h.projectRuns)
	mux.HandleFunc("GET /ws/runs", h.runFeedSocket)

	chained := Chain(mux,
		RecoverPanic(),
		RequestID(),
		RequestLogger(log.Default()),
		Audit(emitter),
	)
	return otelhttp.NewHandler(chained, serviceName)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (h *handler) getSurvey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, survey.Build(resolveLocale(r)))
}

func (h *handler) getSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := survey.JSONSchema(r.PathValue("model"))
	if err != nil {
		writeError(w, resolveLocale(r), err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (h *handler) score(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, locale, err)
		return
	}
	scores, err := survey.Score(survey.Build(locale), req.Responses)
	if err != nil {
		writeError(w, locale, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

func (h *handler) place(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, locale, err)
		return
	}
	scores, err := survey.Score(survey.Build(locale), req.Responses)
	if err != nil {
		writeError(w, locale, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scores":    scores,
		"placement": survey.PlaceOnContinuum(scores),
	})
}

// runImmediate executes the pipeline in one shot. Requests carrying a
// user id also persist the run and return its record id.
func (h *handler) runImmediate(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, locale, err)
		return
	}

	if req.UserID != "" {
		created, err := h.service.CreateRun(r.Context(), domain.CreateInput{
			UserID:    req.UserID,
			Responses: req.Responses,
			Passes:    req.Passes,
			Locale:    locale,
		})
		if err != nil {
			writeError(w, locale, err)
			return
		}
		h.broadcastRun(created.Record)
		writeJSON(w, http.StatusOK, runResponseJSON{Outcome: created.Outcome, RunID: created.Record.ID})
		return
	}

	outcome, err := h.service.Execute(r.Context(), domain.ExecuteInput{
		Responses: req.Responses,
		Passes:    req.Passes,
		Locale:    locale,
	})
	if err != nil {
		writeError(w, locale, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponseJSON{Outcome: outcome})
}

func (h *handler) createRun(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	var req runCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, locale, err)
		return
	}
	created, err := h.service.CreateRun(r.Context(), domain.CreateInput{
		UserID:    req.UserID,
		Responses: req.Responses,
		Passes:    req.Passes,
		Notes:     req.Notes,
		Locale:    locale,
	})
	if err != nil {
		writeError(w, locale, err)
		return
	}
	h.broadcastRun(created.Record)
	writeJSON(w, http.StatusCreated, toRunRecord(created.Record))
}

// broadcastRun pushes a persisted run onto the websocket feed. The
// serialized final state stays off the feed; subscribers fetch it by
// id when they need it.
func (h *handler) broadcastRun(record storage.Run) {
	feedRecord := toRunRecord(record)
	feedRecord.FinalState = nil
	h.feed.broadcastRunCreated(feedRecord)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	query := r.URL.Query()

	page, err := queryInt(query, "page")
	if err != nil {
		writeError(w, locale, err)
		return
	}
	pageSize, err := queryInt(query, "page_size")
	if err != nil {
		writeError(w, locale, err)
		return
	}
	since, err := parseTimestamp("since", query.Get("since"))
	if err != nil {
		writeError(w, locale, err)
		return
	}
	until, err := parseTimestamp("until", query.Get("until"))
	if err != nil {
		writeError(w, locale, err)
		return
	}
	includeState, err := queryBool(query, "include_state")
	if err != nil {
		writeError(w, locale, err)
		return
	}

	list, err := h.service.ListRuns(r.Context(), domain.ListInput{
		UserID:       query.Get("user_id"),
		SurveyID:     query.Get("survey_id"),
		Since:        since,
		Until:        until,
		Filter:       query.Get("filter"),
		Page:         page,
		PageSize:     pageSize,
		IncludeState: includeState,
	})
	if err != nil {
		writeError(w, locale, err)
		return
	}
	writeJSON(w, http.StatusOK, runListJSON{
		Items:    toRunRecords(list.Runs),
		Total:    list.Total,
		Page:     list.Page,
		PageSize: list.PageSize,
	})
}

func (h *handler) runStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, resolveLocale(r), err)
		return
	}
	writeJSON(w, http.StatusOK, toRunStats(stats))
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, resolveLocale(r), err)
		return
	}
	writeJSON(w, http.StatusOK, toRunRecord(run))
}

func (h *handler) compareRuns(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, locale, err)
		return
	}
	results, err := h.service.CompareRuns(r.Context(), domain.CompareInput{
		UserIDs:      req.UserIDs,
		LimitPerUser: req.LimitPerUser,
		IncludeState: req.IncludeState,
	})
	if err != nil {
		writeError(w, locale, err)
		return
	}

	limit := req.LimitPerUser
	if limit <= 0 {
		limit = domain.DefaultCompareLimit
	}
	byUser := make(map[string][]runRecordJSON, len(results))
	for userID, runs := range results {
		byUser[userID] = toRunRecords(runs)
	}
	writeJSON(w, http.StatusOK, compareResponseJSON{
		Results:      byUser,
		TotalUsers:   len(byUser),
		LimitPerUser: limit,
	})
}

func (h *handler) projectRuns(w http.ResponseWriter, r *http.Request) {
	locale := resolveLocale(r)
	var req projectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, locale, err)
		return
	}
	since, err := parseTimestamp("since", req.Since)
	if err != nil {
		writeError(w, locale, err)
		return
	}
	until, err := parseTimestamp("until", req.Until)
	if err != nil {
		writeError(w, locale, err)
		return
	}

	result, err := h.service.Projection(r.Context(), domain.ProjectionInput{
		UserIDs:      req.UserIDs,
		SurveyID:     req.SurveyID,
		Since:        since,
		Until:        until,
		LimitPerUser: req.LimitPerUser,
		Technique:    req.Technique,
		Dims:         req.Dims,
		Features:     req.Features,
	})
	if err != nil {
		writeError(w, locale, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectionResult(result))
}

// runFeedSocket upgrades the request to a websocket subscribed to
// run-created broadcasts.
func (h *handler) runFeedSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(h.feed.handleConn).ServeHTTP(w, r)
}

func queryInt(query url.Values, key string) (int, error) {
	raw := query.Get(key)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(key, raw)
	}
	return value, nil
}

func queryBool(query url.Values, key string) (bool, error) {
	raw := query.Get(key)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidParam(key, raw)
	}
	return value, nil
}

// parseTimestamp reads an optional RFC 3339 timestamp; empty input
// yields a nil time.
func parseTimestamp(key, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, invalidParam(key, raw)
	}
	return &value, nil
}

func invalidParam(key, value string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidRequest, "invalid request parameter",
		map[string]string{"Reason": fmt.Sprintf("invalid %s %q", key, value)})
}
