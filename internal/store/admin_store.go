package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jjenkins/publiccomment/internal/model"
)

// AdminStore handles persistence for admin accounts
type AdminStore struct {
	w *Warehouse
}

// NewAdminStore creates a new AdminStore
func NewAdminStore(w *Warehouse) *AdminStore {
	return &AdminStore{w: w}
}

const adminColumns = `id, email, password_hash, name, role, is_active, created_at, updated_at, last_login`

func adminDest(a *model.Admin) []any {
	return []any{
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Name,
		&a.Role,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
		nullTime(&a.LastLogin),
	}
}

// GetByEmail looks up an admin by case-insensitive email; it returns nil when none exists
func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE LOWER(email) = LOWER($1)`

	var a model.Admin
	err := s.w.DB().QueryRowContext(ctx, query, email).Scan(adminDest(&a)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	return &a, nil
}

// GetByID retrieves an admin; it returns nil when none exists
func (s *AdminStore) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	var a model.Admin
	found, err := s.w.GetByID(ctx, KindAdminUsers, id, adminDest(&a)...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &a, nil
}

// List returns all admins, newest first
func (s *AdminStore) List(ctx context.Context) ([]model.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users ORDER BY created_at DESC`

	rows, err := s.w.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	admins := []model.Admin{}
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(adminDest(&a)...); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, a)
	}

	return admins, rows.Err()
}

// Create inserts an admin, assigning its ID and timestamps
func (s *AdminStore) Create(ctx context.Context, a *model.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	rec := Record{
		"id":            a.ID,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"name":          a.Name,
		"role":          a.Role,
		"is_active":     a.IsActive,
		"created_at":    a.CreatedAt,
		"updated_at":    a.UpdatedAt,
		"last_login":    timeOrNull(a.LastLogin),
	}
	if _, err := s.w.Insert(ctx, KindAdminUsers, rec); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

// Update applies the set fields of u
func (s *AdminStore) Update(ctx context.Context, id string, u model.AdminUpdate) error {
	changes := Record{}
	if u.Name != nil {
		changes["name"] = *u.Name
	}
	if u.Role != nil {
		changes["role"] = *u.Role
	}
	if u.IsActive != nil {
		changes["is_active"] = *u.IsActive
	}

	if err := s.w.Update(ctx, KindAdminUsers, id, changes); err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}
	return nil
}

// SetPasswordHash replaces an admin's bcrypt hash
func (s *AdminStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	if err := s.w.Update(ctx, KindAdminUsers, id, Record{"password_hash": hash}); err != nil {
		return fmt.Errorf("failed to set admin password: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful sign-in
func (s *AdminStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.w.Update(ctx, KindAdminUsers, id, Record{"last_login": at}); err != nil {
		return fmt.Errorf("failed to record admin login: %w", err)
	}
	return nil
}

// Delete removes an admin and reports whether a row existed
func (s *AdminStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.w.DB().ExecContext(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete admin %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete admin %s: %w", id, err)
	}
	return n > 0, nil
}
