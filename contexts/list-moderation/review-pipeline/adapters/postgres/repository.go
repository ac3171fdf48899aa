package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
	"ranklist/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimNextSQL claims the head of the queue in one statement. The inner
// select may carry a row lock suffix; the outer status check guards against
// a row that changed between the select and the update.
const claimNextSQL = `UPDATE submissions
SET status = ?, reviewer_id = ?, updated_at = ?
WHERE id = (
	SELECT id FROM submissions
	WHERE list_id = ? AND status = ?
	ORDER BY priority DESC, created_at ASC, id ASC
	LIMIT 1%s
) AND status = ?
RETURNING *`

const claimAttempts = 3

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the pipeline tables. Production schemas are managed
// outside this service; tests and local databases use this.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&submissionModel{},
		&recordModel{},
		&auditModel{},
		&outboxModel{},
		&listEntryModel{},
		&userStandingModel{},
		&userPermissionModel{},
		&settingsModel{},
		&notificationModel{},
	)
}

func (r *Repository) CreateSubmission(ctx context.Context, submission entities.Submission, audit entities.AuditEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var duplicateCount int64
		if err := tx.Model(&submissionModel{}).
			Where("list_id = ? AND entry_id = ? AND submitted_by = ?",
				submission.ListID, submission.EntryID, submission.SubmittedBy).
			Count(&duplicateCount).
			Error; err != nil {
			return err
		}
		if duplicateCount > 0 {
			return domainerrors.ErrDuplicateActiveSubmission
		}

		row := submissionModelFromEntity(submission)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateActiveSubmission
			}
			return err
		}
		return insertAudit(tx, audit)
	})
	return wrapStorage(err)
}

func (r *Repository) GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error) {
	var row submissionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Submission{}, domainerrors.ErrSubmissionNotFound
		}
		return entities.Submission{}, wrapStorage(err)
	}
	return row.toEntity(), nil
}

func (r *Repository) FindActiveSubmission(
	ctx context.Context,
	listID string,
	entryID string,
	submittedBy string,
) (entities.Submission, bool, error) {
	var rows []submissionModel
	err := r.db.WithContext(ctx).
		Where("list_id = ? AND entry_id = ? AND submitted_by = ?", listID, entryID, submittedBy).
		Limit(1).
		Find(&rows).
		Error
	if err != nil {
		return entities.Submission{}, false, wrapStorage(err)
	}
	if len(rows) == 0 {
		return entities.Submission{}, false, nil
	}
	return rows[0].toEntity(), true, nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter ports.SubmissionFilter) ([]entities.Submission, error) {
	tx := r.db.WithContext(ctx).Model(&submissionModel{})
	if strings.TrimSpace(filter.ListID) != "" {
		tx = tx.Where("list_id = ?", strings.TrimSpace(filter.ListID))
	}
	if strings.TrimSpace(filter.SubmittedBy) != "" {
		tx = tx.Where("submitted_by = ?", strings.TrimSpace(filter.SubmittedBy))
	}
	if strings.TrimSpace(filter.ReviewerID) != "" {
		tx = tx.Where("reviewer_id = ?", strings.TrimSpace(filter.ReviewerID))
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var rows []submissionModel
	if err := tx.Order("created_at DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStorage(err)
	}
	items := make([]entities.Submission, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ApplyTransition(ctx context.Context, transition ports.Transition) (entities.Submission, error) {
	submission := transition.Submission
	var saved submissionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&submissionModel{}).
			Where("id = ? AND status IN ?", submission.SubmissionID, statusStrings(transition.FromStatuses)).
			Updates(submissionUpdates(submission))
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return domainerrors.ErrDuplicateActiveSubmission
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrStale(tx, submission.SubmissionID)
		}
		if err := insertAudit(tx, transition.Audit); err != nil {
			return err
		}
		if transition.Notification != nil {
			if err := appendNotification(tx, *transition.Notification); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", submission.SubmissionID).First(&saved).Error
	})
	if err != nil {
		return entities.Submission{}, wrapStorage(err)
	}
	return saved.toEntity(), nil
}

func (r *Repository) ClaimNext(ctx context.Context, request ports.ClaimRequest) (entities.Submission, error) {
	lockSuffix := ""
	if r.db.Dialector.Name() == "postgres" {
		lockSuffix = " FOR UPDATE SKIP LOCKED"
	}
	statement := fmt.Sprintf(claimNextSQL, lockSuffix)
	claimedAt := request.ClaimedAt.UTC()

	var claimed submissionModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < claimAttempts; attempt++ {
			var rows []submissionModel
			if err := tx.Raw(
				statement,
				string(entities.SubmissionStatusClaimed),
				request.ReviewerID,
				claimedAt,
				request.ListID,
				string(entities.SubmissionStatusPending),
				string(entities.SubmissionStatusPending),
			).Scan(&rows).Error; err != nil {
				return err
			}
			if len(rows) == 0 {
				continue
			}
			claimed = rows[0]
			audit := entities.NewAuditEntry(claimed.toEntity(), request.ReviewerID, "", claimedAt)
			return insertAudit(tx, audit)
		}
		return domainerrors.ErrQueueEmpty
	})
	if err != nil {
		return entities.Submission{}, wrapStorage(err)
	}
	return claimed.toEntity(), nil
}

func (r *Repository) AcceptSubmission(ctx context.Context, acceptance ports.Acceptance) (entities.Record, error) {
	fromStatuses := statusStrings(acceptance.FromStatuses)
	var accepted entities.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row submissionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", acceptance.SubmissionID).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrSubmissionNotFound
			}
			return err
		}
		if !containsString(fromStatuses, row.Status) {
			return domainerrors.ErrStaleTransition
		}
		submission := acceptance.Apply(row.toEntity())

		var existing []recordModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("list_id = ? AND entry_id = ? AND submitted_by = ?",
				submission.ListID, submission.EntryID, submission.SubmittedBy).
			Limit(1).
			Find(&existing).
			Error; err != nil {
			return err
		}
		record := entities.Record{RecordID: acceptance.NewRecordID}
		if len(existing) > 0 {
			record = existing[0].toEntity()
		}
		record = record.ApplyAccepted(submission, acceptance.ReviewerID, acceptance.Notes, acceptance.AcceptedAt)
		model := recordModelFromEntity(record)
		if len(existing) > 0 {
			if err := tx.Model(&recordModel{}).
				Where("id = ?", model.ID).
				Updates(map[string]any{
					"reviewer_id":        model.ReviewerID,
					"video_url":          model.VideoURL,
					"raw_url":            model.RawURL,
					"mobile":             model.Mobile,
					"mod_menu":           model.ModMenu,
					"completion_time_ms": model.CompletionTimeMS,
					"reviewer_notes":     model.ReviewerNotes,
					"updated_at":         model.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&model).Error; err != nil {
			return err
		}

		submission.Status = entities.SubmissionStatusAccepted
		submission.ReviewerID = acceptance.ReviewerID
		submission.ReviewerNotes = acceptance.Notes
		audit := entities.NewAuditEntry(submission, acceptance.ReviewerID, acceptance.Notes, acceptance.AcceptedAt)
		audit.RecordID = record.RecordID
		if err := insertAudit(tx, audit); err != nil {
			return err
		}
		if err := appendNotification(tx, acceptance.Notification); err != nil {
			return err
		}

		result := tx.Where("id = ? AND status IN ?", acceptance.SubmissionID, fromStatuses).
			Delete(&submissionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrSubmissionNotFound
		}
		accepted = record
		return nil
	})
	if err != nil {
		return entities.Record{}, wrapStorage(err)
	}
	return accepted, nil
}

func (r *Repository) DeleteSubmission(ctx context.Context, deletion ports.Deletion) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status IN ?", deletion.SubmissionID, statusStrings(deletion.FromStatuses)).
			Delete(&submissionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrStale(tx, deletion.SubmissionID)
		}
		return insertAudit(tx, deletion.Audit)
	})
	return wrapStorage(err)
}

func (r *Repository) QueuePosition(ctx context.Context, submissionID string) (int, int, error) {
	var target submissionModel
	db := r.db.WithContext(ctx)
	if err := db.Where("id = ?", strings.TrimSpace(submissionID)).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, domainerrors.ErrSubmissionNotFound
		}
		return 0, 0, wrapStorage(err)
	}
	if target.Status != string(entities.SubmissionStatusPending) {
		return 0, 0, domainerrors.ErrNotInQueue
	}

	pending := string(entities.SubmissionStatusPending)
	var total int64
	if err := db.Model(&submissionModel{}).
		Where("list_id = ? AND status = ?", target.ListID, pending).
		Count(&total).Error; err != nil {
		return 0, 0, wrapStorage(err)
	}
	var ahead int64
	if err := db.Model(&submissionModel{}).
		Where("list_id = ? AND status = ?", target.ListID, pending).
		Where(
			"priority > ? OR (priority = ? AND created_at < ?) OR (priority = ? AND created_at = ? AND id < ?)",
			target.Priority,
			target.Priority, target.CreatedAt,
			target.Priority, target.CreatedAt, target.ID,
		).
		Count(&ahead).Error; err != nil {
		return 0, 0, wrapStorage(err)
	}
	return int(ahead) + 1, int(total), nil
}

func (r *Repository) QueueStats(ctx context.Context, listID string) (entities.QueueStats, error) {
	var rows []struct {
		Status string
		Total  int
	}
	if err := r.db.WithContext(ctx).
		Model(&submissionModel{}).
		Select("status, COUNT(*) AS total").
		Where("list_id = ?", listID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return entities.QueueStats{}, wrapStorage(err)
	}
	stats := entities.QueueStats{ListID: listID}
	for _, row := range rows {
		switch entities.SubmissionStatus(row.Status) {
		case entities.SubmissionStatusPending:
			stats.Pending = row.Total
		case entities.SubmissionStatusClaimed:
			stats.Claimed = row.Total
		case entities.SubmissionStatusUnderConsideration:
			stats.UnderConsideration = row.Total
		case entities.SubmissionStatusDenied:
			stats.Denied = row.Total
		}
	}
	return stats, nil
}

func (r *Repository) ListHistory(ctx context.Context, submissionID string) ([]entities.AuditEntry, error) {
	var rows []auditModel
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, wrapStorage(err)
	}
	if len(rows) == 0 {
		return nil, domainerrors.ErrSubmissionNotFound
	}
	items := make([]entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ReapStaleClaims(ctx context.Context, request ports.ReapRequest) ([]entities.ReapedClaim, error) {
	var reaped []entities.ReapedClaim
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("status = ? AND updated_at < ?",
			string(entities.SubmissionStatusClaimed), request.Cutoff.UTC()).
			Order("updated_at ASC").
			Order("id ASC")
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var rows []submissionModel
		if err := query.Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, 0, len(rows))
		claims := make([]entities.ReapedClaim, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			claims = append(claims, entities.ReapedClaim{
				SubmissionID: row.ID,
				ListID:       row.ListID,
				ReviewerID:   derefString(row.ReviewerID),
				ClaimedSince: row.UpdatedAt.UTC(),
			})
		}
		if err := tx.Model(&submissionModel{}).
			Where("id IN ? AND status = ?", ids, string(entities.SubmissionStatusClaimed)).
			Updates(map[string]any{
				"status":      string(entities.SubmissionStatusPending),
				"reviewer_id": nil,
				"updated_at":  request.Now.UTC(),
			}).Error; err != nil {
			return err
		}
		envelope, err := request.Envelope(claims)
		if err != nil {
			return err
		}
		if err := appendOutbox(tx, envelope); err != nil {
			return err
		}
		reaped = claims
		return nil
	})
	if err != nil {
		r.logger.Error("reap stale claims transaction failed",
			"event", "review_pipeline_reap_tx_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "adapter",
			"error", err.Error(),
		)
		return nil, wrapStorage(err)
	}
	return reaped, nil
}

func (r *Repository) FindRecord(
	ctx context.Context,
	listID string,
	entryID string,
	submittedBy string,
) (entities.Record, bool, error) {
	var rows []recordModel
	if err := r.db.WithContext(ctx).
		Where("list_id = ? AND entry_id = ? AND submitted_by = ?", listID, entryID, submittedBy).
		Limit(1).
		Find(&rows).Error; err != nil {
		return entities.Record{}, false, wrapStorage(err)
	}
	if len(rows) == 0 {
		return entities.Record{}, false, nil
	}
	return rows[0].toEntity(), true, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, wrapStorage(err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	published := publishedAt.UTC()
	return wrapStorage(r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": &published,
		}).Error)
}

func insertAudit(tx *gorm.DB, entry entities.AuditEntry) error {
	row, err := auditModelFromEntity(entry)
	if err != nil {
		return err
	}
	return tx.Create(&row).Error
}

func appendNotification(tx *gorm.DB, event ports.NotificationEvent) error {
	envelope, err := event.Envelope()
	if err != nil {
		return err
	}
	return appendOutbox(tx, envelope)
}

func appendOutbox(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

// missingOrStale tells a vanished row apart from one whose status moved on.
func missingOrStale(tx *gorm.DB, submissionID string) error {
	var count int64
	if err := tx.Model(&submissionModel{}).Where("id = ?", submissionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domainerrors.ErrSubmissionNotFound
	}
	return domainerrors.ErrStaleTransition
}

func statusStrings(statuses []entities.SubmissionStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return values
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// wrapStorage marks driver failures as storage errors and passes domain
// errors through unchanged.
func wrapStorage(err error) error {
	if err == nil || domainerrors.IsDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
