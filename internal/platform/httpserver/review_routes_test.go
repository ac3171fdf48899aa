package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	reviewpipeline "ranklist/contexts/list-moderation/review-pipeline"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
	reviewhttp "ranklist/contexts/list-moderation/review-pipeline/transport/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewTestServer(t *testing.T, auth Authenticator) (*Server, reviewpipeline.Module) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	module := reviewpipeline.NewInMemoryModule(nil, logger)
	module.Store.SetNow(time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC))
	module.Store.SeedEntries(
		entities.ListEntry{EntryID: "sonic-wave", ListID: "classic", Position: 450},
		entities.ListEntry{EntryID: "bloodbath", ListID: "classic", Position: 20},
	)
	module.Store.GrantPermission("mod-m", ports.PermissionReviewSubmissions)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("submission_claims_total 0\n"))
	})
	return New(module, auth, metrics, logger, ":0"), module
}

func doRequest(t *testing.T, server *Server, method string, path string, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &value), rr.Body.String())
	return value
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	server, _ := newReviewTestServer(t, Authenticator{})

	rr := doRequest(t, server, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = doRequest(t, server, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "submission_claims_total")
}

func TestReviewRoutesRequireIdentity(t *testing.T) {
	server, _ := newReviewTestServer(t, Authenticator{})

	rr := doRequest(t, server, http.MethodPost, "/v1/submissions", "", `{"list_id":"classic","entry_id":"sonic-wave","video_url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code, rr.Body.String())
	assert.Equal(t, "unauthorized", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)
}

func TestSubmissionLifecycleOverHTTP(t *testing.T) {
	server, module := newReviewTestServer(t, Authenticator{})

	rr := doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a",
		`{"list_id":"classic","entry_id":"sonic-wave","video_url":"https://youtu.be/abc","mobile":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody[reviewhttp.SubmissionResponse](t, rr).Submission
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", created.VideoURL)

	rr = doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a",
		`{"list_id":"classic","entry_id":"sonic-wave","video_url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "duplicate_active_submission", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodGet, "/v1/submissions/"+created.SubmissionID+"/queue-position", "player-a", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeBody[reviewhttp.QueuePositionResponse](t, rr).Position)

	rr = doRequest(t, server, http.MethodPost, "/v1/lists/classic/queue/claim", "player-a", "")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodPost, "/v1/lists/classic/queue/claim", "mod-m", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, created.SubmissionID, decodeBody[reviewhttp.SubmissionResponse](t, rr).Submission.SubmissionID)

	rr = doRequest(t, server, http.MethodPost, "/v1/lists/classic/queue/claim", "mod-m", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "queue_empty", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodPost, "/v1/submissions/"+created.SubmissionID+"/accept", "mod-m", `{"notes":"clean"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	record := decodeBody[reviewhttp.AcceptSubmissionResponse](t, rr).Record
	assert.Equal(t, "clean", record.ReviewerNotes)
	assert.True(t, record.Mobile)
	assert.Len(t, module.Store.Records(), 1)

	rr = doRequest(t, server, http.MethodGet, "/v1/submissions/"+created.SubmissionID, "player-a", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "submission_not_found", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodGet, "/v1/submissions/"+created.SubmissionID+"/history", "mod-m", "")
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeBody[reviewhttp.HistoryResponse](t, rr)
	require.Len(t, history.Items, 3)
	assert.Equal(t, "accepted", history.Items[0].Status)
	assert.Equal(t, record.RecordID, history.Items[0].RecordID)
}

func TestReviewErrorMapping(t *testing.T) {
	server, _ := newReviewTestServer(t, Authenticator{})

	rr := doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a",
		`{"list_id":"classic","entry_id":"bloodbath","video_url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a", `{"list_id":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a",
		`{"list_id":"challenge","entry_id":"sonic-wave","video_url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "unknown_list", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a",
		`{"list_id":"classic","entry_id":"sonic-wave","video_url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[reviewhttp.SubmissionResponse](t, rr).Submission

	rr = doRequest(t, server, http.MethodPost, "/v1/submissions/"+created.SubmissionID+"/accept", "mod-m", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_status_transition", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodPatch, "/v1/submissions/"+created.SubmissionID, "player-a", `{"reviewer_notes":"self review"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "submitter_fields_only", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodGet, "/v1/submissions?limit=ten", "player-a", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_limit", decodeBody[reviewhttp.ErrorResponse](t, rr).Code)

	rr = doRequest(t, server, http.MethodDelete, "/v1/submissions/"+created.SubmissionID, "player-a", "")
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = doRequest(t, server, http.MethodGet, "/v1/lists/classic/queue/stats", "player-a", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, reviewhttp.QueueStatsResponse{ListID: "classic"}, decodeBody[reviewhttp.QueueStatsResponse](t, rr))
}

func TestAuthenticatorBearerTokens(t *testing.T) {
	secret := []byte("test-secret")
	auth := Authenticator{Secret: secret}

	sign := func(method jwt.SigningMethod, key any, subject string) string {
		token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}
	resolve := func(header string, userHeader string) (string, error) {
		req := httptest.NewRequest(http.MethodGet, "/v1/submissions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if userHeader != "" {
			req.Header.Set("X-User-Id", userHeader)
		}
		return auth.ResolveUser(req)
	}

	userID, err := resolve("Bearer "+sign(jwt.SigningMethodHS256, secret, "player-a"), "")
	require.NoError(t, err)
	assert.Equal(t, "player-a", userID)

	_, err = resolve("Bearer "+sign(jwt.SigningMethodHS256, []byte("other-secret"), "player-a"), "")
	require.ErrorIs(t, err, errInvalidToken)

	_, err = resolve("Bearer "+sign(jwt.SigningMethodHS384, secret, "player-a"), "")
	require.ErrorIs(t, err, errInvalidToken)

	_, err = resolve("", "player-a")
	require.ErrorIs(t, err, errMissingIdentity)

	userID, err = Authenticator{}.ResolveUser(func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-Id", " gateway-user ")
		return req
	}())
	require.NoError(t, err)
	assert.Equal(t, "gateway-user", userID)
}

func TestInvalidLinksMapToDistinctCodes(t *testing.T) {
	server, module := newReviewTestServer(t, Authenticator{})

	cases := []struct {
		name string
		body string
		code string
	}{
		{"bad video scheme", `{"list_id":"classic","entry_id":"sonic-wave","video_url":"ftp://youtu.be/abc"}`, "invalid_url"},
		{"missing video", `{"list_id":"classic","entry_id":"sonic-wave","video_url":"  "}`, "invalid_url"},
		{"bad raw scheme", `{"list_id":"classic","entry_id":"sonic-wave","video_url":"https://youtu.be/abc","raw_url":"ftp://files.example.com/raw.mp4"}`, "invalid_raw_url"},
		{"raw without host", `{"list_id":"classic","entry_id":"sonic-wave","video_url":"https://youtu.be/abc","raw_url":"https://localhost/raw"}`, "invalid_raw_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, server, http.MethodPost, "/v1/submissions", "player-a", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, tc.code, decodeBody[reviewhttp.ErrorResponse](t, rr).Code)
		})
	}

	stats := doRequest(t, server, http.MethodGet, "/v1/lists/classic/queue/stats", "player-a", "")
	require.Equal(t, http.StatusOK, stats.Code)
	assert.Equal(t, reviewhttp.QueueStatsResponse{ListID: "classic"}, decodeBody[reviewhttp.QueueStatsResponse](t, stats))
	assert.Empty(t, module.Store.Records())
}
