package store

import (
	"database/sql"
	"time"
)

// nullString scans a nullable text column into a plain string ("" for NULL)
func nullString(dst *string) sql.Scanner {
	return stringScanner{dst: dst}
}

type stringScanner struct {
	dst *string
}

func (s stringScanner) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	*s.dst = ns.String
	return nil
}

// nullTime scans a nullable timestamp into a *time.Time (nil for NULL)
func nullTime(dst **time.Time) sql.Scanner {
	return timeScanner{dst: dst}
}

type timeScanner struct {
	dst **time.Time
}

func (s timeScanner) Scan(src any) error {
	var nt sql.NullTime
	if err := nt.Scan(src); err != nil {
		return err
	}
	if !nt.Valid {
		*s.dst = nil
		return nil
	}
	t := nt.Time.UTC()
	*s.dst = &t
	return nil
}

// emptyAsNull stores "" as NULL
func emptyAsNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
