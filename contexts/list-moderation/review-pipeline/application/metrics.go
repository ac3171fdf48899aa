package application

import (
	"context"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

type noopMetrics struct{}

func (noopMetrics) RecordTransition(context.Context, string, entities.SubmissionStatus) {}
func (noopMetrics) RecordClaim(context.Context, string, string)                        {}
func (noopMetrics) RecordReaped(context.Context, int)                                  {}

func ResolveMetrics(metrics ports.Metrics) ports.Metrics {
	if metrics != nil {
		return metrics
	}
	return noopMetrics{}
}
