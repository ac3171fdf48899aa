package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	reviewpipeline "ranklist/contexts/list-moderation/review-pipeline"
	reviewerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	reviewhttp "ranklist/contexts/list-moderation/review-pipeline/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ranklist/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	auth    Authenticator
	metrics http.Handler
	review  reviewpipeline.Module
}

func New(
	review reviewpipeline.Module,
	auth Authenticator,
	metrics http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		auth:    auth,
		metrics: metrics,
		review:  review,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("POST /v1/submissions", s.handleCreateSubmission)
	s.mux.HandleFunc("GET /v1/submissions", s.handleListSubmissions)
	s.mux.HandleFunc("GET /v1/submissions/{submission_id}", s.handleGetSubmission)
	s.mux.HandleFunc("PATCH /v1/submissions/{submission_id}", s.handlePatchSubmission)
	s.mux.HandleFunc("DELETE /v1/submissions/{submission_id}", s.handleDeleteSubmission)
	s.mux.HandleFunc("GET /v1/submissions/{submission_id}/queue-position", s.handleQueuePosition)
	s.mux.HandleFunc("GET /v1/submissions/{submission_id}/history", s.handleHistory)

	s.mux.HandleFunc("POST /v1/lists/{list_id}/queue/claim", s.handleClaimNext)
	s.mux.HandleFunc("GET /v1/lists/{list_id}/queue/stats", s.handleQueueStats)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/unclaim", s.handleUnclaim)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/deny", s.handleDeny)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/under-consideration", s.handleUnderConsideration)
	s.mux.HandleFunc("POST /v1/submissions/{submission_id}/accept", s.handleAccept)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewhttp.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeReviewError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.review.Handler.CreateSubmissionHandler(r.Context(), userID, req)
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeReviewError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.review.Handler.ListSubmissionsHandler(
		r.Context(),
		userID,
		query.Get("list_id"),
		query.Get("submitted_by"),
		query.Get("status"),
		limit,
	)
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.review.Handler.GetSubmissionHandler(r.Context(), userID, r.PathValue("submission_id"))
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePatchSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewhttp.PatchSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeReviewError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.review.Handler.PatchSubmissionHandler(r.Context(), userID, r.PathValue("submission_id"), req)
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewhttp.DeleteSubmissionRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	if err := s.review.Handler.DeleteSubmissionHandler(r.Context(), userID, r.PathValue("submission_id"), req); err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueuePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.review.Handler.QueuePositionHandler(r.Context(), userID, r.PathValue("submission_id"))
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.review.Handler.HistoryHandler(r.Context(), userID, r.PathValue("submission_id"))
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimNext(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.review.Handler.ClaimNextHandler(r.Context(), reviewerID, r.PathValue("list_id"))
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.review.Handler.QueueStatsHandler(r.Context(), r.PathValue("list_id"))
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnclaim(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.review.Handler.UnclaimHandler(r.Context(), reviewerID, r.PathValue("submission_id"))
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewhttp.ReviewRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	resp, err := s.review.Handler.DenyHandler(r.Context(), reviewerID, r.PathValue("submission_id"), req)
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnderConsideration(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewhttp.ReviewRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	resp, err := s.review.Handler.UnderConsiderationHandler(r.Context(), reviewerID, r.PathValue("submission_id"), req)
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req reviewhttp.ReviewRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	resp, err := s.review.Handler.AcceptHandler(r.Context(), reviewerID, r.PathValue("submission_id"), req)
	if err != nil {
		s.writeReviewDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.auth.ResolveUser(r)
	if err != nil {
		writeReviewError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return "", false
	}
	return userID, true
}

func (s *Server) writeReviewDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch reviewerrors.KindOf(err) {
	case reviewerrors.KindValidation:
		status := http.StatusBadRequest
		if errors.Is(err, reviewerrors.ErrInvalidStatusTransition) {
			status = http.StatusUnprocessableEntity
		}
		writeReviewError(w, status, errorCode(err), err.Error())
	case reviewerrors.KindConflict:
		writeReviewError(w, http.StatusConflict, errorCode(err), err.Error())
	case reviewerrors.KindNotFound:
		writeReviewError(w, http.StatusNotFound, errorCode(err), err.Error())
	case reviewerrors.KindAuthorization:
		writeReviewError(w, http.StatusForbidden, errorCode(err), err.Error())
	default:
		s.logger.Error("review request failed",
			"event", "http_review_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeReviewError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{reviewerrors.ErrDuplicateActiveSubmission, "duplicate_active_submission"},
	{reviewerrors.ErrSubmissionLocked, "submission_locked"},
	{reviewerrors.ErrStaleTransition, "stale_transition"},
	{reviewerrors.ErrInvalidStatusTransition, "invalid_status_transition"},
	{reviewerrors.ErrSubmitterFieldsOnly, "submitter_fields_only"},
	{reviewerrors.ErrSubmissionsDisabled, "submissions_disabled"},
	{reviewerrors.ErrSubmitterBanned, "submitter_banned"},
	{reviewerrors.ErrUnauthorizedActor, "forbidden"},
	{reviewerrors.ErrSubmissionNotFound, "submission_not_found"},
	{reviewerrors.ErrEntryNotFound, "entry_not_found"},
	{reviewerrors.ErrQueueEmpty, "queue_empty"},
	{reviewerrors.ErrNotInQueue, "not_in_queue"},
	{reviewerrors.ErrUnknownList, "unknown_list"},
	// A rejected raw link wraps the validator's error, so it is matched first.
	{reviewerrors.ErrInvalidRawURL, "invalid_raw_url"},
	{reviewerrors.ErrInvalidSubmissionURL, "invalid_url"},
}

func errorCode(err error) string {
	for _, item := range errorCodes {
		if errors.Is(err, item.err) {
			return item.code
		}
	}
	return string(reviewerrors.KindOf(err))
}

// decodeOptionalBody accepts an empty body and rejects malformed JSON.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeReviewError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
	return false
}

func writeReviewError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, reviewhttp.ErrorResponse{
		Code:    code,
		Message: strings.TrimSpace(message),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
