package model

import "time"

// AnalyticsSnapshot is the per-day, per-rulemaking submission aggregate
type AnalyticsSnapshot struct {
	ID                string    `json:"id"`
	Date              Date      `json:"date"`
	RulemakingID      string    `json:"rulemaking_id"`
	TotalSubmissions  int64     `json:"total_submissions"`
	UniqueUsers       int64     `json:"unique_users"`
	StatesRepresented int64     `json:"states_represented"`
	AvgCommentLength  float64   `json:"avg_comment_length"`
	CreatedAt         time.Time `json:"created_at"`
}

// SameCounts reports whether two snapshots carry identical numeric fields
func (a AnalyticsSnapshot) SameCounts(b AnalyticsSnapshot) bool {
	return a.TotalSubmissions == b.TotalSubmissions &&
		a.UniqueUsers == b.UniqueUsers &&
		a.StatesRepresented == b.StatesRepresented &&
		a.AvgCommentLength == b.AvgCommentLength
}
