package model

import "time"

// Submission statuses
const (
	SubmissionDraft     = "draft"
	SubmissionSubmitted = "submitted"
	SubmissionFailed    = "failed"
)

// IsValidSubmissionStatus reports whether s is a known submission status
func IsValidSubmissionStatus(s string) bool {
	switch s {
	case SubmissionDraft, SubmissionSubmitted, SubmissionFailed:
		return true
	default:
		return false
	}
}

// Narrative holds the citizen-supplied fields that feed the letter prompt.
// An empty string means "not provided"; the store persists it as NULL.
type Narrative struct {
	Name          string `json:"user_name"`
	Email         string `json:"user_email,omitempty"`
	City          string `json:"user_city,omitempty"`
	State         string `json:"user_state,omitempty"`
	Zip           string `json:"user_zip,omitempty"`
	PersonalStory string `json:"personal_story,omitempty"`
	WhyItMatters  string `json:"why_it_matters,omitempty"`
	Experiences   string `json:"experiences,omitempty"`
	Concerns      string `json:"concerns,omitempty"`
}

// Submission is one citizen's comment letter tied to a rulemaking
type Submission struct {
	ID           string `json:"id"`
	RulemakingID string `json:"rulemaking_id"`
	Narrative

	GeneratedComment            string     `json:"generated_comment"`
	FinalComment                string     `json:"final_comment,omitempty"`
	Status                      string     `json:"submission_status"`
	FederalRegisterSubmissionID string     `json:"federal_register_submission_id,omitempty"`
	IPAddress                   string     `json:"ip_address,omitempty"`
	UserAgent                   string     `json:"user_agent,omitempty"`
	RecaptchaVerified           bool       `json:"recaptcha_verified"`
	CreatedAt                   time.Time  `json:"created_at"`
	SubmittedAt                 *time.Time `json:"submitted_at,omitempty"`
}

// Sanitized returns a copy without request metadata, safe for public callers
func (s Submission) Sanitized() Submission {
	s.IPAddress = ""
	s.UserAgent = ""
	return s
}

// Letter returns the text the citizen settled on, falling back to the draft
func (s *Submission) Letter() string {
	if s.FinalComment != "" {
		return s.FinalComment
	}
	return s.GeneratedComment
}

// SubmissionFilter narrows admin listings and exports
type SubmissionFilter struct {
	RulemakingID string
	Status       string
	Limit        int
	Offset       int
}

// StatsFilter narrows aggregate queries; zero values mean unbounded
type StatsFilter struct {
	RulemakingID string
	From         time.Time
	To           time.Time
}

// SubmissionStats aggregates submission counters
type SubmissionStats struct {
	TotalSubmissions  int64   `json:"total_submissions"`
	UniqueUsers       int64   `json:"unique_users"`
	StatesRepresented int64   `json:"states_represented"`
	AvgCommentLength  float64 `json:"avg_comment_length"`
	SubmittedCount    int64   `json:"submitted_count"`
	DraftCount        int64   `json:"draft_count"`
}

// ExportRow is a sanitized submission joined with its rulemaking
type ExportRow struct {
	Submission
	RulemakingTitle string `json:"rulemaking_title"`
	Agency          string `json:"agency"`
	DocketID        string `json:"docket_id"`
}
