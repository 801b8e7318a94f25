package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/publiccomment/internal/model"
)

func TestBuildInsert(t *testing.T) {
	query, args, err := buildInsert(KindAnalytics, []Record{
		{"id": "a", "rulemaking_id": "r1", "total_submissions": 3},
		{"id": "b", "rulemaking_id": "r2", "total_submissions": 1},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO analytics (id, rulemaking_id, total_submissions) VALUES ($1, $2, $3), ($4, $5, $6)",
		query)
	assert.Equal(t, []any{"a", "r1", 3, "b", "r2", 1}, args)
}

func TestBuildInsertRejects(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		records []Record
	}{
		{"unknown kind", Kind("comments"), []Record{{"id": "x"}}},
		{"unknown column", KindSubmissions, []Record{{"id": "x", "shoe_size": 9}}},
		{"empty record", KindSubmissions, []Record{{}}},
		{"ragged records", KindSubmissions, []Record{{"id": "x"}, {"id": "y", "user_name": "n"}}},
		{"mismatched columns", KindSubmissions, []Record{{"id": "x"}, {"user_name": "n"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := buildInsert(tt.kind, tt.records)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestBuildUpdate(t *testing.T) {
	t.Run("stamps updated_at", func(t *testing.T) {
		query, args, err := buildUpdate(KindRulemakings, "r1", Record{"title": "New", "status": "closed"})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE rulemakings SET status = $1, title = $2, updated_at = NOW() WHERE id = $3", query)
		assert.Equal(t, []any{"closed", "New", "r1"}, args)
	})

	t.Run("kinds without updated_at", func(t *testing.T) {
		query, _, err := buildUpdate(KindSubmissions, "s1", Record{"submission_status": "submitted"})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE submissions SET submission_status = $1 WHERE id = $2", query)
	})

	for _, col := range []string{"id", "created_at", "updated_at", "nope"} {
		t.Run("rejects "+col, func(t *testing.T) {
			_, _, err := buildUpdate(KindRulemakings, "r1", Record{col: "x"})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}

	t.Run("rejects empty change set", func(t *testing.T) {
		_, _, err := buildUpdate(KindAdminUsers, "a1", Record{})
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestBuildStatsQuery(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	query, args := buildStatsQuery(model.StatsFilter{RulemakingID: "r1", From: from, To: to})
	assert.Contains(t, query, "WHERE rulemaking_id = $1 AND created_at >= $2 AND created_at < $3")
	assert.Equal(t, []any{"r1", from, to}, args)

	query, args = buildStatsQuery(model.StatsFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestSubmissionWhere(t *testing.T) {
	where, args := submissionWhere("r1", "draft")
	assert.Equal(t, "WHERE s.rulemaking_id = $1 AND s.submission_status = $2", where)
	assert.Equal(t, []any{"r1", "draft"}, args)

	where, args = submissionWhere("", "")
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestTransientErrors(t *testing.T) {
	assert.True(t, isTransient(fmt.Errorf("wrapped: %w", &pq.Error{Code: "55P03"})))
	assert.True(t, isTransient(&pq.Error{Code: "40001"}))
	assert.False(t, isTransient(&pq.Error{Code: "23505"}))
	assert.False(t, isTransient(errors.New("boom")))
	assert.False(t, isTransient(nil))

	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
}

func TestRecordConversions(t *testing.T) {
	rec := Record{"a": int64(4), "b": "7", "c": 2.5, "d": "3.25", "e": nil}

	assert.Equal(t, int64(4), recordInt(rec, "a"))
	assert.Equal(t, int64(7), recordInt(rec, "b"))
	assert.Equal(t, int64(0), recordInt(rec, "e"))
	assert.Equal(t, 2.5, recordFloat(rec, "c"))
	assert.Equal(t, 3.25, recordFloat(rec, "d"))
	assert.Equal(t, 4.0, recordFloat(rec, "a"))
}

func TestNullScanners(t *testing.T) {
	var s string
	require.NoError(t, nullString(&s).Scan(nil))
	assert.Empty(t, s)
	require.NoError(t, nullString(&s).Scan([]byte("Ohio")))
	assert.Equal(t, "Ohio", s)

	var ts *time.Time
	require.NoError(t, nullTime(&ts).Scan(nil))
	assert.Nil(t, ts)
	now := time.Now()
	require.NoError(t, nullTime(&ts).Scan(now))
	require.NotNil(t, ts)
	assert.True(t, now.Equal(*ts))

	assert.Nil(t, emptyAsNull(""))
	assert.Equal(t, "x", emptyAsNull("x"))
	assert.Nil(t, timeOrNull(nil))
}
