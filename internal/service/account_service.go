package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// StudentDirectory stores student accounts.
type StudentDirectory interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByUsername(ctx context.Context, username string) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
}

// AdminDirectory stores admin accounts.
type AdminDirectory interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
}

// AccountService resolves and provisions student and admin accounts.
type AccountService struct {
	students StudentDirectory
	admins   AdminDirectory
	auth     *AuthService
}

// NewAccountService creates a new AccountService.
func NewAccountService(students StudentDirectory, admins AdminDirectory, auth *AuthService) *AccountService {
	return &AccountService{students: students, admins: admins, auth: auth}
}

// AuthenticateStudent verifies a username and password. Unknown usernames and
// wrong passwords are both ErrInvalidCredentials.
func (s *AccountService) AuthenticateStudent(ctx context.Context, username, password string) (*model.Student, error) {
	student, err := s.students.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.auth.CheckPassword(student.PasswordHash, password); err != nil {
		return nil, err
	}
	return student, nil
}

// AuthenticateAdmin verifies an email and password.
func (s *AccountService) AuthenticateAdmin(ctx context.Context, email, password string) (*model.Admin, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.auth.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, err
	}
	return admin, nil
}

// GetStudent retrieves a student by ID.
func (s *AccountService) GetStudent(ctx context.Context, id int) (*model.Student, error) {
	return s.students.GetByID(ctx, id)
}

// CreateStudent provisions a student enrolled in examID.
func (s *AccountService) CreateStudent(ctx context.Context, username, name, password string, examID uuid.UUID) (*model.Student, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	student := &model.Student{Username: username, Name: name, PasswordHash: hash, ExamID: examID}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// CreateAdmin provisions an admin with the given permissions.
func (s *AccountService) CreateAdmin(ctx context.Context, email, name, password string, permissions []string) (*model.Admin, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.Admin{Email: email, Name: name, PasswordHash: hash, Permissions: permissions}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
