package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/store"
)

// MinPasswordLength is the shortest accepted admin password
const MinPasswordLength = 8

const roleMessage = "Role must be one of: " + model.RoleAdmin

// AdminService authenticates and manages admin accounts
type AdminService struct {
	admins    AdminRepository
	cost      int
	dummyHash []byte
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminService creates an AdminService hashing with the given bcrypt cost
// (bcrypt.DefaultCost when zero).
func NewAdminService(admins AdminRepository, cost int, logger *zap.Logger) *AdminService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// compared against when the email is unknown so every login costs one bcrypt run
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt: %v", err))
	}
	return &AdminService{
		admins:    admins,
		cost:      cost,
		dummyHash: dummy,
		logger:    logger.Named("admin"),
		now:       time.Now,
	}
}

// Authenticate checks credentials and returns the admin's profile.
// Unknown, inactive and wrong-password logins all return ErrInvalidCredentials.
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (*model.AdminProfile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		verr := &ValidationError{}
		if email == "" {
			verr.Add("email", "Email is required")
		}
		if password == "" {
			verr.Add("password", "Password is required")
		}
		return nil, verr
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}

	hash := s.dummyHash
	if admin != nil {
		hash = []byte(admin.PasswordHash)
	}
	match := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil

	if admin == nil || !admin.IsActive || !match {
		s.logger.Info("admin login rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if err := s.admins.TouchLastLogin(ctx, admin.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.String("admin_id", admin.ID), zap.Error(err))
	}

	profile := admin.Profile()
	return &profile, nil
}

// CreateAdminRequest describes a new admin account
type CreateAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Create registers an admin. A duplicate email is a domain error.
func (s *AdminService) Create(ctx context.Context, req CreateAdminRequest) (*model.Admin, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = model.RoleAdmin
	}

	verr := &ValidationError{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		verr.Add("email", "Valid email is required")
	}
	if req.Name == "" {
		verr.Add("name", "Name is required")
	}
	if len(req.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if !model.IsValidRole(req.Role) {
		verr.Add("role", roleMessage)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	existing, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check admin email: %w", err)
	}
	if existing != nil {
		return nil, domainErrorf("Admin with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.Admin{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domainErrorf("Admin with this email already exists")
		}
		return nil, err
	}

	s.logger.Info("admin created", zap.String("admin_id", admin.ID), zap.String("email", admin.Email))
	return admin, nil
}

// List returns every admin account
func (s *AdminService) List(ctx context.Context) ([]model.Admin, error) {
	return s.admins.List(ctx)
}

// Get returns one admin account
func (s *AdminService) Get(ctx context.Context, id string) (*model.Admin, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("admin %s: %w", id, ErrNotFound)
	}
	return admin, nil
}

// GetByEmail returns the admin with a case-insensitively matching email
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if admin == nil {
		return nil, fmt.Errorf("admin %s: %w", email, ErrNotFound)
	}
	return admin, nil
}

// Update changes name, role or active flag and returns the updated account
func (s *AdminService) Update(ctx context.Context, id string, u model.AdminUpdate) (*model.Admin, error) {
	if u.Empty() {
		return nil, domainErrorf("No valid fields to update")
	}
	verr := &ValidationError{}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		verr.Add("name", "Name must not be empty")
	}
	if u.Role != nil && !model.IsValidRole(*u.Role) {
		verr.Add("role", roleMessage)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	admin, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.admins.Update(ctx, id, u); err != nil {
		return nil, err
	}

	if u.Name != nil {
		admin.Name = strings.TrimSpace(*u.Name)
	}
	if u.Role != nil {
		admin.Role = *u.Role
	}
	if u.IsActive != nil {
		admin.IsActive = *u.IsActive
	}
	admin.UpdatedAt = s.now().UTC()
	return admin, nil
}

// ChangePassword re-hashes and stores a new password
func (s *AdminService) ChangePassword(ctx context.Context, id, password string) error {
	if len(password) < MinPasswordLength {
		verr := &ValidationError{}
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
		return verr
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.admins.SetPasswordHash(ctx, id, string(hash))
}

// Delete removes an admin account
func (s *AdminService) Delete(ctx context.Context, id string) error {
	deleted, err := s.admins.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("admin %s: %w", id, ErrNotFound)
	}
	s.logger.Info("admin deleted", zap.String("admin_id", id))
	return nil
}
