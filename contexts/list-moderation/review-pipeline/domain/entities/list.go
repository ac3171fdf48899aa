package entities

import "strings"

// ListConfig parameterizes the pipeline for one ranked list.
type ListConfig struct {
	ListID string
	// RawFootageTopN requires raw footage for entries placed at or above this
	// position. Zero disables the requirement.
	RawFootageTopN        int
	RequireCompletionTime bool
}

// RequiresRawFootage reports whether an entry at position needs raw footage.
func (c ListConfig) RequiresRawFootage(entry ListEntry) bool {
	if c.RawFootageTopN <= 0 || entry.Position <= 0 {
		return false
	}
	return entry.Position <= c.RawFootageTopN
}

// ListEntry is the read-only view of a list entry (a level).
type ListEntry struct {
	EntryID  string
	ListID   string
	Name     string
	Position int
	Legacy   bool
	Archived bool
}

func (e ListEntry) AcceptsSubmissions() bool {
	return strings.TrimSpace(e.EntryID) != "" && !e.Legacy && !e.Archived
}

// BanTier is the submitter's ban level; zero means not banned.
type BanTier int

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is the user-facing message delivered to the sink.
type Notification struct {
	NotificationID string
	UserID         string
	Message        string
	Severity       Severity
}
