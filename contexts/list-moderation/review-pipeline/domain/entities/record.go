package entities

import "time"

// Record is a permanent accepted completion. Placement columns are maintained
// by the database and never written from here.
type Record struct {
	RecordID      string
	ListID        string
	EntryID       string
	SubmittedBy   string
	ReviewerID    string
	Payload       Payload
	ReviewerNotes string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplyAccepted copies an accepted submission onto the record, keeping the
// record identity and creation time when it already exists.
func (r Record) ApplyAccepted(submission Submission, reviewerID string, notes string, now time.Time) Record {
	r.ListID = submission.ListID
	r.EntryID = submission.EntryID
	r.SubmittedBy = submission.SubmittedBy
	r.ReviewerID = reviewerID
	r.Payload = submission.Payload
	r.ReviewerNotes = notes
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	r.UpdatedAt = now.UTC()
	return r
}
