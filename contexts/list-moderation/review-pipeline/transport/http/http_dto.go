package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateSubmissionRequest struct {
	ListID           string `json:"list_id"`
	EntryID          string `json:"entry_id"`
	VideoURL         string `json:"video_url"`
	RawURL           string `json:"raw_url,omitempty"`
	Mobile           bool   `json:"mobile"`
	ModMenu          string `json:"mod_menu,omitempty"`
	UserNotes        string `json:"user_notes,omitempty"`
	CompletionTimeMS *int64 `json:"completion_time_ms,omitempty"`
}

// PatchSubmissionRequest is a partial update; omitted fields stay unchanged.
// ReviewerNotes and Status are honoured for reviewers only.
type PatchSubmissionRequest struct {
	EntryID          *string `json:"entry_id,omitempty"`
	VideoURL         *string `json:"video_url,omitempty"`
	RawURL           *string `json:"raw_url,omitempty"`
	Mobile           *bool   `json:"mobile,omitempty"`
	ModMenu          *string `json:"mod_menu,omitempty"`
	UserNotes        *string `json:"user_notes,omitempty"`
	CompletionTimeMS *int64  `json:"completion_time_ms,omitempty"`
	ReviewerNotes    *string `json:"reviewer_notes,omitempty"`
	Status           *string `json:"status,omitempty"`
}

type ReviewRequest struct {
	Notes string `json:"notes"`
}

type DeleteSubmissionRequest struct {
	Reason string `json:"reason"`
}

type SubmissionDTO struct {
	SubmissionID     string `json:"submission_id"`
	ListID           string `json:"list_id"`
	EntryID          string `json:"entry_id"`
	SubmittedBy      string `json:"submitted_by"`
	ReviewerID       string `json:"reviewer_id,omitempty"`
	VideoURL         string `json:"video_url"`
	RawURL           string `json:"raw_url,omitempty"`
	Mobile           bool   `json:"mobile"`
	ModMenu          string `json:"mod_menu,omitempty"`
	UserNotes        string `json:"user_notes,omitempty"`
	CompletionTimeMS *int64 `json:"completion_time_ms,omitempty"`
	ReviewerNotes    string `json:"reviewer_notes,omitempty"`
	Status           string `json:"status"`
	Priority         int    `json:"priority"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type RecordDTO struct {
	RecordID         string `json:"record_id"`
	ListID           string `json:"list_id"`
	EntryID          string `json:"entry_id"`
	SubmittedBy      string `json:"submitted_by"`
	ReviewerID       string `json:"reviewer_id,omitempty"`
	VideoURL         string `json:"video_url"`
	RawURL           string `json:"raw_url,omitempty"`
	Mobile           bool   `json:"mobile"`
	ModMenu          string `json:"mod_menu,omitempty"`
	CompletionTimeMS *int64 `json:"completion_time_ms,omitempty"`
	ReviewerNotes    string `json:"reviewer_notes,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type AuditEntryDTO struct {
	AuditID      int64          `json:"audit_id"`
	SubmissionID string         `json:"submission_id"`
	ListID       string         `json:"list_id"`
	Status       string         `json:"status"`
	ReviewerID   string         `json:"reviewer_id,omitempty"`
	ActorID      string         `json:"actor_id"`
	Reason       string         `json:"reason,omitempty"`
	RecordID     string         `json:"record_id,omitempty"`
	Snapshot     map[string]any `json:"snapshot"`
	CreatedAt    string         `json:"created_at"`
}

type SubmissionResponse struct {
	Submission SubmissionDTO `json:"submission"`
}

type ListSubmissionsResponse struct {
	Items []SubmissionDTO `json:"items"`
}

type PatchSubmissionResponse struct {
	Submission *SubmissionDTO `json:"submission,omitempty"`
	Record     *RecordDTO     `json:"record,omitempty"`
	Deleted    bool           `json:"deleted"`
}

type AcceptSubmissionResponse struct {
	Record RecordDTO `json:"record"`
}

type QueuePositionResponse struct {
	SubmissionID string `json:"submission_id"`
	Position     int    `json:"position"`
	Total        int    `json:"total"`
}

type QueueStatsResponse struct {
	ListID             string `json:"list_id"`
	Pending            int    `json:"pending"`
	Claimed            int    `json:"claimed"`
	UnderConsideration int    `json:"under_consideration"`
	Denied             int    `json:"denied"`
}

type HistoryResponse struct {
	Items []AuditEntryDTO `json:"items"`
}
