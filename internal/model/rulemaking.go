package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Rulemaking statuses
const (
	RulemakingDraft  = "draft"
	RulemakingActive = "active"
	RulemakingClosed = "closed"
)

// DateLayout is the calendar-date format used for deadlines and analytics days
const DateLayout = "2006-01-02"

// Rulemaking represents a regulatory proceeding open for public comment
type Rulemaking struct {
	ID                 string           `json:"id"`
	Agency             string           `json:"agency"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	DocketID           string           `json:"docket_id"`
	FederalRegisterURL string           `json:"federal_register_url,omitempty"`
	CommentDeadline    Date             `json:"comment_deadline"`
	Status             string           `json:"status"`
	ContextDocuments   ContextDocuments `json:"context_documents,omitempty"`
	LegalAnalysis      string           `json:"legal_analysis,omitempty"`
	OppositionPoints   OppositionPoints `json:"opposition_points,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// AcceptsComments reports whether new submissions may be created at the given instant.
// The deadline day itself is still open.
func (r *Rulemaking) AcceptsComments(now time.Time) bool {
	if r.Status != RulemakingActive {
		return false
	}
	today := TruncateDay(now)
	return !r.CommentDeadline.Time().Before(today)
}

// IsValidRulemakingStatus reports whether s is a known rulemaking status
func IsValidRulemakingStatus(s string) bool {
	switch s {
	case RulemakingDraft, RulemakingActive, RulemakingClosed:
		return true
	default:
		return false
	}
}

// ContextDocument is a reference document attached to a rulemaking
type ContextDocument struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// UnmarshalJSON accepts either a bare string (treated as the title) or an object.
func (d *ContextDocument) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*d = ContextDocument{Title: title}
		return nil
	}

	type plain ContextDocument
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = ContextDocument(p)
	return nil
}

// ContextDocuments is stored as a JSONB array
type ContextDocuments []ContextDocument

// Value implements driver.Valuer
func (c ContextDocuments) Value() (driver.Value, error) {
	return jsonValue(c, len(c))
}

// Scan implements sql.Scanner
func (c *ContextDocuments) Scan(src any) error {
	return jsonScan(src, c)
}

// OppositionPoints is stored as a JSONB array of strings
type OppositionPoints []string

// Value implements driver.Valuer
func (o OppositionPoints) Value() (driver.Value, error) {
	return jsonValue(o, len(o))
}

// Scan implements sql.Scanner
func (o *OppositionPoints) Scan(src any) error {
	return jsonScan(src, o)
}

func jsonValue(v any, n int) (driver.Value, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
