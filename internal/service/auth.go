package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ddreams/internal/model"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type AuthService struct {
	db *sql.DB
}

func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db}
}

func (s *AuthService) Register(ctx context.Context, email, password, companyName, contactName string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `INSERT INTO users (email, company_name, contact_name, password_hash)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	row := s.db.QueryRowContext(ctx, query, strings.ToLower(email), companyName, contactName, hash)

	user := model.User{
		Email:        strings.ToLower(email),
		CompanyName:  companyName,
		ContactName:  contactName,
		PasswordHash: hash,
	}
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	query := `SELECT id, email, company_name, COALESCE(contact_name, ''), password_hash, is_admin, created_at
	          FROM users WHERE email = $1`
	row := s.db.QueryRowContext(ctx, query, strings.ToLower(email))

	var user model.User
	if err := row.Scan(&user.ID, &user.Email, &user.CompanyName, &user.ContactName, &user.PasswordHash, &user.Admin, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *AuthService) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, email, company_name, COALESCE(contact_name, ''), is_admin, created_at
	          FROM users WHERE id = $1`
	var user model.User
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.CompanyName, &user.ContactName, &user.Admin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
