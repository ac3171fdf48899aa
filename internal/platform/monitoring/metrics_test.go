package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetricsExposition(t *testing.T) {
	metrics, err := NewPipelineMetrics("ranklist-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = metrics.Shutdown(context.Background()) })

	ctx := context.Background()
	metrics.RecordTransition(ctx, "classic", entities.SubmissionStatusAccepted)
	metrics.RecordClaim(ctx, "classic", "claimed")
	metrics.RecordClaim(ctx, "classic", "empty")
	metrics.RecordReaped(ctx, 3)
	metrics.RecordReaped(ctx, 0)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "submission_transitions_total{")
	assert.Contains(t, body, `status="accepted"`)
	assert.Contains(t, body, `outcome="claimed"`)
	assert.Contains(t, body, `outcome="empty"`)
	assert.Contains(t, body, "submission_claims_reaped_total{")
	assert.Contains(t, body, `list_id="classic"`)
}
