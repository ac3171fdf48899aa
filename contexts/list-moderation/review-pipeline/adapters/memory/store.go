package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/domain/services"
	"ranklist/contexts/list-moderation/review-pipeline/ports"

	"github.com/google/uuid"
)

type outboxRow struct {
	message     ports.OutboxMessage
	publishedAt *time.Time
}

// Store is a single-process implementation of every review pipeline port.
// One mutex serialises all writes, which gives the same atomicity the SQL
// adapter gets from transactions.
type Store struct {
	mu sync.RWMutex

	submissions map[string]entities.Submission
	records     map[string]entities.Record
	audits      []entities.AuditEntry
	nextAuditID int64
	outbox      []outboxRow

	entries       map[string]entities.ListEntry
	permissions   map[string]map[string]bool
	bans          map[string]entities.BanTier
	priorities    map[string]int
	enabled       bool
	notifications []entities.Notification

	now *time.Time
}

func NewStore() *Store {
	return &Store{
		submissions: make(map[string]entities.Submission),
		records:     make(map[string]entities.Record),
		entries:     make(map[string]entities.ListEntry),
		permissions: make(map[string]map[string]bool),
		bans:        make(map[string]entities.BanTier),
		priorities:  make(map[string]int),
		enabled:     true,
	}
}

func recordKey(listID string, entryID string, submittedBy string) string {
	return listID + "|" + entryID + "|" + submittedBy
}

func entryKey(listID string, entryID string) string {
	return listID + "|" + entryID
}

// SeedSubmissions stores submissions as-is, bypassing validation and audit.
func (s *Store) SeedSubmissions(items ...entities.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.submissions[item.SubmissionID] = item
	}
}

func (s *Store) CreateSubmission(_ context.Context, submission entities.Submission, audit entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[submission.SubmissionID]; exists {
		return domainerrors.ErrDuplicateActiveSubmission
	}
	if s.hasActiveLocked(submission.ListID, submission.EntryID, submission.SubmittedBy, "") {
		return domainerrors.ErrDuplicateActiveSubmission
	}
	s.submissions[submission.SubmissionID] = submission
	s.appendAuditLocked(audit)
	return nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.submissions[strings.TrimSpace(submissionID)]
	if !exists {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	return item, nil
}

func (s *Store) FindActiveSubmission(
	_ context.Context,
	listID string,
	entryID string,
	submittedBy string,
) (entities.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.submissions {
		if item.ListID == listID && item.EntryID == entryID && item.SubmittedBy == submittedBy {
			return item, true, nil
		}
	}
	return entities.Submission{}, false, nil
}

func (s *Store) ListSubmissions(_ context.Context, filter ports.SubmissionFilter) ([]entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Submission, 0, len(s.submissions))
	for _, item := range s.submissions {
		if filter.ListID != "" && item.ListID != filter.ListID {
			continue
		}
		if filter.SubmittedBy != "" && item.SubmittedBy != filter.SubmittedBy {
			continue
		}
		if filter.ReviewerID != "" && item.ReviewerID != filter.ReviewerID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].SubmissionID < items[j].SubmissionID
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) ApplyTransition(_ context.Context, transition ports.Transition) (entities.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := transition.Submission
	existing, exists := s.submissions[updated.SubmissionID]
	if !exists {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	if !slices.Contains(transition.FromStatuses, existing.Status) {
		return entities.Submission{}, domainerrors.ErrStaleTransition
	}
	if s.hasActiveLocked(updated.ListID, updated.EntryID, updated.SubmittedBy, updated.SubmissionID) {
		return entities.Submission{}, domainerrors.ErrDuplicateActiveSubmission
	}
	if transition.Notification != nil {
		if err := s.appendNotificationLocked(*transition.Notification); err != nil {
			return entities.Submission{}, err
		}
	}
	s.submissions[updated.SubmissionID] = updated
	s.appendAuditLocked(transition.Audit)
	return updated, nil
}

func (s *Store) ClaimNext(_ context.Context, request ports.ClaimRequest) (entities.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pendingLocked(request.ListID)
	if len(pending) == 0 {
		return entities.Submission{}, domainerrors.ErrQueueEmpty
	}
	services.SortQueue(pending)

	claimed := pending[0]
	claimed.Status = entities.SubmissionStatusClaimed
	claimed.ReviewerID = request.ReviewerID
	claimed.UpdatedAt = request.ClaimedAt.UTC()
	s.submissions[claimed.SubmissionID] = claimed
	s.appendAuditLocked(entities.NewAuditEntry(claimed, request.ReviewerID, "", request.ClaimedAt))
	return claimed, nil
}

func (s *Store) AcceptSubmission(_ context.Context, acceptance ports.Acceptance) (entities.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submission, exists := s.submissions[acceptance.SubmissionID]
	if !exists {
		return entities.Record{}, domainerrors.ErrSubmissionNotFound
	}
	if !slices.Contains(acceptance.FromStatuses, submission.Status) {
		return entities.Record{}, domainerrors.ErrStaleTransition
	}
	submission = acceptance.Apply(submission)

	key := recordKey(submission.ListID, submission.EntryID, submission.SubmittedBy)
	record, found := s.records[key]
	if !found {
		record = entities.Record{RecordID: acceptance.NewRecordID}
	}
	record = record.ApplyAccepted(submission, acceptance.ReviewerID, acceptance.Notes, acceptance.AcceptedAt)

	if err := s.appendNotificationLocked(acceptance.Notification); err != nil {
		return entities.Record{}, err
	}
	s.records[key] = record

	accepted := submission
	accepted.Status = entities.SubmissionStatusAccepted
	accepted.ReviewerID = acceptance.ReviewerID
	accepted.ReviewerNotes = acceptance.Notes
	audit := entities.NewAuditEntry(accepted, acceptance.ReviewerID, acceptance.Notes, acceptance.AcceptedAt)
	audit.RecordID = record.RecordID
	s.appendAuditLocked(audit)
	delete(s.submissions, submission.SubmissionID)
	return record, nil
}

func (s *Store) DeleteSubmission(_ context.Context, deletion ports.Deletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.submissions[deletion.SubmissionID]
	if !exists {
		return domainerrors.ErrSubmissionNotFound
	}
	if !slices.Contains(deletion.FromStatuses, existing.Status) {
		return domainerrors.ErrStaleTransition
	}
	delete(s.submissions, deletion.SubmissionID)
	s.appendAuditLocked(deletion.Audit)
	return nil
}

func (s *Store) QueuePosition(_ context.Context, submissionID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, exists := s.submissions[strings.TrimSpace(submissionID)]
	if !exists {
		return 0, 0, domainerrors.ErrSubmissionNotFound
	}
	if target.Status != entities.SubmissionStatusPending {
		return 0, 0, domainerrors.ErrNotInQueue
	}
	position, total := services.QueuePosition(target, s.pendingLocked(target.ListID))
	return position, total, nil
}

func (s *Store) QueueStats(_ context.Context, listID string) (entities.QueueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := entities.QueueStats{ListID: listID}
	for _, item := range s.submissions {
		if item.ListID != listID {
			continue
		}
		switch item.Status {
		case entities.SubmissionStatusPending:
			stats.Pending++
		case entities.SubmissionStatusClaimed:
			stats.Claimed++
		case entities.SubmissionStatusUnderConsideration:
			stats.UnderConsideration++
		case entities.SubmissionStatusDenied:
			stats.Denied++
		}
	}
	return stats, nil
}

func (s *Store) ListHistory(_ context.Context, submissionID string) ([]entities.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.AuditEntry, 0)
	for _, entry := range s.audits {
		if entry.SubmissionID == submissionID {
			items = append(items, entry)
		}
	}
	if len(items) == 0 {
		return nil, domainerrors.ErrSubmissionNotFound
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].AuditID > items[j].AuditID
	})
	return items, nil
}

func (s *Store) ReapStaleClaims(_ context.Context, request ports.ReapRequest) ([]entities.ReapedClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := make([]entities.Submission, 0)
	for _, item := range s.submissions {
		if item.Status == entities.SubmissionStatusClaimed && item.UpdatedAt.Before(request.Cutoff) {
			stale = append(stale, item)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if !stale[i].UpdatedAt.Equal(stale[j].UpdatedAt) {
			return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
		}
		return stale[i].SubmissionID < stale[j].SubmissionID
	})
	if len(stale) == 0 {
		return nil, nil
	}

	reaped := make([]entities.ReapedClaim, 0, len(stale))
	for _, item := range stale {
		reaped = append(reaped, entities.ReapedClaim{
			SubmissionID: item.SubmissionID,
			ListID:       item.ListID,
			ReviewerID:   item.ReviewerID,
			ClaimedSince: item.UpdatedAt,
		})
	}
	envelope, err := request.Envelope(reaped)
	if err != nil {
		return nil, err
	}
	if err := s.appendEnvelopeLocked(envelope); err != nil {
		return nil, err
	}
	for _, item := range stale {
		item.Status = entities.SubmissionStatusPending
		item.ReviewerID = ""
		item.UpdatedAt = request.Now.UTC()
		s.submissions[item.SubmissionID] = item
	}
	return reaped, nil
}

func (s *Store) FindRecord(
	_ context.Context,
	listID string,
	entryID string,
	submittedBy string,
) (entities.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, found := s.records[recordKey(listID, entryID, submittedBy)]
	return record, found, nil
}

// Records returns every accepted record, ordered by creation.
func (s *Store) Records() []entities.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Record, 0, len(s.records))
	for _, record := range s.records {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.publishedAt != nil {
			continue
		}
		items = append(items, row.message)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			at := publishedAt.UTC()
			s.outbox[i].publishedAt = &at
			return nil
		}
	}
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.now != nil {
		return *s.now
	}
	return time.Now().UTC()
}

// SetNow pins the store clock.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned := now.UTC()
	s.now = &pinned
}

// Advance moves a pinned clock forward, pinning it first when needed.
func (s *Store) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Now().UTC()
	if s.now != nil {
		base = *s.now
	}
	next := base.Add(d)
	s.now = &next
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) hasActiveLocked(listID string, entryID string, submittedBy string, exceptID string) bool {
	for _, item := range s.submissions {
		if item.SubmissionID == exceptID {
			continue
		}
		if item.ListID == listID && item.EntryID == entryID && item.SubmittedBy == submittedBy {
			return true
		}
	}
	return false
}

func (s *Store) pendingLocked(listID string) []entities.Submission {
	pending := make([]entities.Submission, 0)
	for _, item := range s.submissions {
		if item.ListID == listID && item.Status == entities.SubmissionStatusPending {
			pending = append(pending, item)
		}
	}
	return pending
}

func (s *Store) appendAuditLocked(entry entities.AuditEntry) {
	s.nextAuditID++
	entry.AuditID = s.nextAuditID
	s.audits = append(s.audits, entry)
}

func (s *Store) appendNotificationLocked(event ports.NotificationEvent) error {
	envelope, err := event.Envelope()
	if err != nil {
		return err
	}
	return s.appendEnvelopeLocked(envelope)
}

func (s *Store) appendEnvelopeLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := envelope.EventID
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	s.outbox = append(s.outbox, outboxRow{message: ports.OutboxMessage{
		OutboxID:     outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt,
	}})
	return nil
}
