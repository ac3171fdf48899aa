package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/application/commands"
	"ranklist/contexts/list-moderation/review-pipeline/application/queries"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	httptransport "ranklist/contexts/list-moderation/review-pipeline/transport/http"
)

type Handler struct {
	CreateSubmission commands.CreateSubmissionUseCase
	PatchSubmission  commands.PatchSubmissionUseCase
	ClaimSubmission  commands.ClaimSubmissionUseCase
	ReviewSubmission commands.ReviewSubmissionUseCase
	DeleteSubmission commands.DeleteSubmissionUseCase
	Queries          queries.QueryUseCase
	Logger           *slog.Logger
}

func (h Handler) CreateSubmissionHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreateSubmissionRequest,
) (httptransport.SubmissionResponse, error) {
	item, err := h.CreateSubmission.Execute(ctx, commands.CreateSubmissionCommand{
		SubmitterID: userID,
		ListID:      req.ListID,
		EntryID:     req.EntryID,
		Payload: entities.Payload{
			VideoURL:         req.VideoURL,
			RawURL:           req.RawURL,
			Mobile:           req.Mobile,
			ModMenu:          req.ModMenu,
			UserNotes:        req.UserNotes,
			CompletionTimeMS: req.CompletionTimeMS,
		},
	})
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return httptransport.SubmissionResponse{Submission: mapSubmission(item)}, nil
}

func (h Handler) PatchSubmissionHandler(
	ctx context.Context,
	userID string,
	submissionID string,
	req httptransport.PatchSubmissionRequest,
) (httptransport.PatchSubmissionResponse, error) {
	patch := commands.SubmissionPatch{
		EntryID:          req.EntryID,
		VideoURL:         req.VideoURL,
		RawURL:           req.RawURL,
		Mobile:           req.Mobile,
		ModMenu:          req.ModMenu,
		UserNotes:        req.UserNotes,
		CompletionTimeMS: req.CompletionTimeMS,
		ReviewerNotes:    req.ReviewerNotes,
	}
	if req.Status != nil {
		status, ok := entities.ParseSubmissionStatus(*req.Status)
		if !ok {
			return httptransport.PatchSubmissionResponse{}, domainerrors.ErrInvalidStatusTransition
		}
		patch.Status = &status
	}

	result, err := h.PatchSubmission.Execute(ctx, commands.PatchSubmissionCommand{
		SubmissionID: submissionID,
		ActorID:      userID,
		Patch:        patch,
	})
	if err != nil {
		return httptransport.PatchSubmissionResponse{}, err
	}
	response := httptransport.PatchSubmissionResponse{Deleted: result.Deleted}
	if result.Record != nil {
		record := mapRecord(*result.Record)
		response.Record = &record
	}
	if !result.Deleted {
		submission := mapSubmission(result.Submission)
		response.Submission = &submission
	}
	return response, nil
}

func (h Handler) GetSubmissionHandler(
	ctx context.Context,
	userID string,
	submissionID string,
) (httptransport.SubmissionResponse, error) {
	item, err := h.Queries.GetSubmission(ctx, userID, submissionID)
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return httptransport.SubmissionResponse{Submission: mapSubmission(item)}, nil
}

func (h Handler) ListSubmissionsHandler(
	ctx context.Context,
	userID string,
	listID string,
	submittedBy string,
	status string,
	limit int,
) (httptransport.ListSubmissionsResponse, error) {
	items, err := h.Queries.ListSubmissions(ctx, queries.ListSubmissionsQuery{
		ViewerID:    userID,
		ListID:      listID,
		SubmittedBy: submittedBy,
		Status:      status,
		Limit:       limit,
	})
	if err != nil {
		return httptransport.ListSubmissionsResponse{}, err
	}
	result := make([]httptransport.SubmissionDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapSubmission(item))
	}
	return httptransport.ListSubmissionsResponse{Items: result}, nil
}

func (h Handler) DeleteSubmissionHandler(
	ctx context.Context,
	userID string,
	submissionID string,
	req httptransport.DeleteSubmissionRequest,
) error {
	return h.DeleteSubmission.Execute(ctx, commands.DeleteSubmissionCommand{
		SubmissionID: submissionID,
		ActorID:      userID,
		Reason:       req.Reason,
	})
}

func (h Handler) ClaimNextHandler(
	ctx context.Context,
	reviewerID string,
	listID string,
) (httptransport.SubmissionResponse, error) {
	item, err := h.ClaimSubmission.Execute(ctx, commands.ClaimSubmissionCommand{
		ListID:     listID,
		ReviewerID: reviewerID,
	})
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return httptransport.SubmissionResponse{Submission: mapSubmission(item)}, nil
}

func (h Handler) UnclaimHandler(
	ctx context.Context,
	reviewerID string,
	submissionID string,
) (httptransport.SubmissionResponse, error) {
	return h.review(ctx, h.ReviewSubmission.Unclaim, reviewerID, submissionID, "")
}

func (h Handler) DenyHandler(
	ctx context.Context,
	reviewerID string,
	submissionID string,
	req httptransport.ReviewRequest,
) (httptransport.SubmissionResponse, error) {
	return h.review(ctx, h.ReviewSubmission.Deny, reviewerID, submissionID, req.Notes)
}

func (h Handler) UnderConsiderationHandler(
	ctx context.Context,
	reviewerID string,
	submissionID string,
	req httptransport.ReviewRequest,
) (httptransport.SubmissionResponse, error) {
	return h.review(ctx, h.ReviewSubmission.MarkUnderConsideration, reviewerID, submissionID, req.Notes)
}

func (h Handler) AcceptHandler(
	ctx context.Context,
	reviewerID string,
	submissionID string,
	req httptransport.ReviewRequest,
) (httptransport.AcceptSubmissionResponse, error) {
	record, err := h.ReviewSubmission.Accept(ctx, commands.ReviewCommand{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Notes:        req.Notes,
	})
	if err != nil {
		return httptransport.AcceptSubmissionResponse{}, err
	}
	return httptransport.AcceptSubmissionResponse{Record: mapRecord(record)}, nil
}

func (h Handler) QueuePositionHandler(
	ctx context.Context,
	userID string,
	submissionID string,
) (httptransport.QueuePositionResponse, error) {
	position, err := h.Queries.QueuePosition(ctx, userID, submissionID)
	if err != nil {
		return httptransport.QueuePositionResponse{}, err
	}
	return httptransport.QueuePositionResponse{
		SubmissionID: position.SubmissionID,
		Position:     position.Position,
		Total:        position.Total,
	}, nil
}

func (h Handler) QueueStatsHandler(ctx context.Context, listID string) (httptransport.QueueStatsResponse, error) {
	stats, err := h.Queries.QueueStats(ctx, listID)
	if err != nil {
		return httptransport.QueueStatsResponse{}, err
	}
	return httptransport.QueueStatsResponse{
		ListID:             stats.ListID,
		Pending:            stats.Pending,
		Claimed:            stats.Claimed,
		UnderConsideration: stats.UnderConsideration,
		Denied:             stats.Denied,
	}, nil
}

func (h Handler) HistoryHandler(
	ctx context.Context,
	userID string,
	submissionID string,
) (httptransport.HistoryResponse, error) {
	entries, err := h.Queries.History(ctx, userID, submissionID)
	if err != nil {
		return httptransport.HistoryResponse{}, err
	}
	items := make([]httptransport.AuditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, mapAuditEntry(entry))
	}
	return httptransport.HistoryResponse{Items: items}, nil
}

func (h Handler) review(
	ctx context.Context,
	transition func(context.Context, commands.ReviewCommand) (entities.Submission, error),
	reviewerID string,
	submissionID string,
	notes string,
) (httptransport.SubmissionResponse, error) {
	item, err := transition(ctx, commands.ReviewCommand{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Notes:        notes,
	})
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return httptransport.SubmissionResponse{Submission: mapSubmission(item)}, nil
}

func mapSubmission(item entities.Submission) httptransport.SubmissionDTO {
	return httptransport.SubmissionDTO{
		SubmissionID:     item.SubmissionID,
		ListID:           item.ListID,
		EntryID:          item.EntryID,
		SubmittedBy:      item.SubmittedBy,
		ReviewerID:       item.ReviewerID,
		VideoURL:         item.Payload.VideoURL,
		RawURL:           item.Payload.RawURL,
		Mobile:           item.Payload.Mobile,
		ModMenu:          item.Payload.ModMenu,
		UserNotes:        item.Payload.UserNotes,
		CompletionTimeMS: item.Payload.CompletionTimeMS,
		ReviewerNotes:    item.ReviewerNotes,
		Status:           string(item.Status),
		Priority:         item.Priority,
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
}

func mapRecord(item entities.Record) httptransport.RecordDTO {
	return httptransport.RecordDTO{
		RecordID:         item.RecordID,
		ListID:           item.ListID,
		EntryID:          item.EntryID,
		SubmittedBy:      item.SubmittedBy,
		ReviewerID:       item.ReviewerID,
		VideoURL:         item.Payload.VideoURL,
		RawURL:           item.Payload.RawURL,
		Mobile:           item.Payload.Mobile,
		ModMenu:          item.Payload.ModMenu,
		CompletionTimeMS: item.Payload.CompletionTimeMS,
		ReviewerNotes:    item.ReviewerNotes,
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
}

func mapAuditEntry(entry entities.AuditEntry) httptransport.AuditEntryDTO {
	snapshot := map[string]any{}
	if raw, err := json.Marshal(entry.Snapshot); err == nil {
		_ = json.Unmarshal(raw, &snapshot)
	}
	return httptransport.AuditEntryDTO{
		AuditID:      entry.AuditID,
		SubmissionID: entry.SubmissionID,
		ListID:       entry.ListID,
		Status:       string(entry.Status),
		ReviewerID:   entry.ReviewerID,
		ActorID:      entry.ActorID,
		Reason:       entry.Reason,
		RecordID:     entry.RecordID,
		Snapshot:     snapshot,
		CreatedAt:    formatTime(entry.CreatedAt),
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
