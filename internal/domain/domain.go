package domain

// DraftEntry is an unsubmitted entry as typed by the analyst. All business
// fields hold raw text; parsing happens at validation and commit time.
type DraftEntry struct {
	LocalID     string `json:"local_id"`
	DealName    string `json:"deal_name"`
	Department  string `json:"department"`
	Type        string `json:"type"`
	HoursWorked string `json:"hours_worked"`
	Description string `json:"description"`
	TaskDate    string `json:"task_date" example:"2024-05-01"`
}

// Submission is a committed entry. It is never edited after insert.
type Submission struct {
	ID          string  `json:"id"`
	Analyst     string  `json:"analyst"`
	DealName    string  `json:"deal_name"`
	Department  string  `json:"department"`
	Type        string  `json:"type"`
	HoursWorked float64 `json:"hours_worked"`
	Description string  `json:"description,omitempty"`
	TaskDate    string  `json:"task_date" format:"date"`
	SubmittedAt string  `json:"submitted_at" format:"date-time"`
	// AnalystName is derived for display and not stored.
	AnalystName string `json:"analyst_name,omitempty"`
}

// Rating is one rater's score for a submission. The analyst, deal, department,
// type and task date are copied from the submission when the rating is created.
type Rating struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	Value        int    `json:"value"`
	RatedBy      string `json:"rated_by"`
	RatedAt      string `json:"rated_at" format:"date-time"`
	Analyst      string `json:"analyst"`
	DealName     string `json:"deal_name"`
	Department   string `json:"department"`
	Type         string `json:"type"`
	TaskDate     string `json:"task_date" format:"date"`
}

// RatedSubmission pairs a submission with every rating it has received.
type RatedSubmission struct {
	Submission Submission `json:"submission"`
	Ratings    []Rating   `json:"ratings"`
	Mine       *Rating    `json:"mine,omitempty"`
}

// Partition splits committed entries by rating status. Both lists keep the
// submitted_at descending order of the input.
type Partition struct {
	Unrated []Submission      `json:"unrated"`
	Rated   []RatedSubmission `json:"rated"`
}

type User struct {
	ID         string `json:"id"`
	SecretHash string `json:"-"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
