package memory

import (
	"context"
	"strings"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"

	"github.com/google/uuid"
)

func (s *Store) SeedEntries(entries ...entities.ListEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.entries[entryKey(entry.ListID, entry.EntryID)] = entry
	}
}

func (s *Store) GrantPermission(userID string, permission string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	granted, ok := s.permissions[userID]
	if !ok {
		granted = make(map[string]bool)
		s.permissions[userID] = granted
	}
	granted[permission] = true
}

func (s *Store) SetBanTier(userID string, tier entities.BanTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[userID] = tier
}

func (s *Store) SetPriorityTier(userID string, tier int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorities[userID] = tier
}

func (s *Store) SetSubmissionsEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *Store) GetEntry(_ context.Context, listID string, entryID string) (entities.ListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryKey(listID, strings.TrimSpace(entryID))]
	if !ok {
		return entities.ListEntry{}, domainerrors.ErrEntryNotFound
	}
	return entry, nil
}

func (s *Store) HasPermission(_ context.Context, userID string, permission string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions[userID][permission], nil
}

func (s *Store) BanTier(_ context.Context, userID string) (entities.BanTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bans[userID], nil
}

func (s *Store) SubmissionsEnabled(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled, nil
}

func (s *Store) PriorityTier(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priorities[userID], nil
}

func (s *Store) Notify(_ context.Context, userID string, message string, severity entities.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, entities.Notification{
		NotificationID: uuid.NewString(),
		UserID:         userID,
		Message:        message,
		Severity:       severity,
	})
	return nil
}

// Notifications returns the messages delivered so far.
func (s *Store) Notifications() []entities.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Notification(nil), s.notifications...)
}
