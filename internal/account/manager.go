// Package account runs the user account lifecycle: registration, email
// activation, login, and the forgot/reset password flow.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"expense_tracker/internal/domain"
	"expense_tracker/internal/token"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength applies at registration and at password reset.
const MinPasswordLength = 6

var validate = validator.New()

// Notifier hands an email off for asynchronous delivery.
type Notifier interface {
	Send(subject, body, from string, to []string) bool
}

// Manager coordinates persistence, tokens and notifications for the
// account flows.
type Manager struct {
	db       *gorm.DB
	tokens   *token.Service
	notifier Notifier
	from     string

	// HashCost is the bcrypt cost for new password hashes.
	HashCost int
}

func NewManager(db *gorm.DB, tokens *token.Service, notifier Notifier, from string) *Manager {
	return &Manager{db: db, tokens: tokens, notifier: notifier, from: from, HashCost: bcrypt.DefaultCost}
}

// RegisterInput is the registration form. LinkBase is the scheme and host
// the activation link points at.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	LinkBase string
}

// ValidateUsername checks that username is well formed and not taken.
func (m *Manager) ValidateUsername(ctx context.Context, username string) error {
	if err := validate.Var(username, "required,alphanum,max=150"); err != nil {
		return invalid("username", "Username must be alphanumeric.")
	}
	taken, err := m.exists(ctx, "username = ?", username)
	if err != nil {
		return err
	}
	if taken {
		return invalid("username", "Sorry username in use, please choose another one.")
	}
	return nil
}

// ValidateEmail checks that email is a valid address and not taken.
func (m *Manager) ValidateEmail(ctx context.Context, email string) error {
	if !validEmail(email) {
		return invalid("email", "Email is invalid")
	}
	taken, err := m.exists(ctx, "email = ?", email)
	if err != nil {
		return err
	}
	if taken {
		return invalid("email", "Sorry email in use, please choose another one.")
	}
	return nil
}

// Register creates an inactive user and mails an activation link. The user
// is not logged in.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := m.ValidateUsername(ctx, in.Username); err != nil {
		return nil, err
	}
	if err := m.ValidateEmail(ctx, in.Email); err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := m.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Username: in.Username, Email: in.Email, Password: hash}
	if err := m.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent registration
			return nil, invalid("username", "Username or email is already in use.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tok, err := m.tokens.Issue(token.Activation, user)
	if err != nil {
		return nil, err
	}
	link := in.LinkBase + "/activate/" + token.EncodeUID(user.ID) + "/" + tok
	body := "Hi " + user.Username + ",\n\n" +
		"Thank you for registering. Your account has been created successfully!\n\n" +
		"Please click the link below to activate your account:\n" + link
	m.notifier.Send("Activate your account", body, m.from, []string{user.Email})

	logrus.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Activate marks the user behind an activation link as active. A link for
// an account that is already active returns ErrAlreadyActive and changes
// nothing, whatever the token; an inactive account with a bad or expired
// token returns ErrTokenInvalid.
func (m *Manager) Activate(ctx context.Context, uid, tok string) (*domain.User, error) {
	user, err := m.userFromUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.IsActive {
		return user, ErrAlreadyActive
	}
	if err := m.tokens.Check(token.Activation, user, tok); err != nil {
		return user, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	// Guard on is_active so two concurrent clicks activate once
	res := m.db.WithContext(ctx).Model(user).Where("is_active = ?", false).Update("is_active", true)
	if res.Error != nil {
		return user, fmt.Errorf("activate user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user, ErrAlreadyActive
	}
	logrus.WithField("user_id", user.ID).Info("User activated")
	return user, nil
}

// Login checks credentials. Unknown user and wrong password both return
// ErrInvalidCredentials. Valid credentials of an inactive user return
// ErrInactive. On success the last login time is recorded, which also
// invalidates outstanding password reset links.
func (m *Manager) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("", "Please fill in all fields.")
	}
	var user domain.User
	err := m.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return &user, ErrInactive
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := m.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return &user, nil
}

// ForgotPassword mails a reset link if email belongs to a user. The result
// is the same whether or not the address is registered.
func (m *Manager) ForgotPassword(ctx context.Context, email, linkBase string) error {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return invalid("email", "Please enter a valid email address.")
	}
	var user domain.User
	err := m.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithField("reason", "unknown email").Info("Password reset requested for unknown address")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	tok, err := m.tokens.Issue(token.PasswordReset, &user)
	if err != nil {
		return err
	}
	link := linkBase + "/set-new-password/" + token.EncodeUID(user.ID) + "/" + tok
	body := "Hi " + user.Username + ",\n\nPlease click the link below to reset your password:\n" + link
	m.notifier.Send("Reset your password", body, m.from, []string{user.Email})

	logrus.WithField("user_id", user.ID).Info("Password reset link issued")
	return nil
}

// CheckResetLink validates a password reset link without using it.
func (m *Manager) CheckResetLink(ctx context.Context, uid, tok string) (*domain.User, error) {
	user, err := m.userFromUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := m.tokens.Check(token.PasswordReset, user, tok); err != nil {
		return user, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return user, nil
}

// ResetPassword sets a new password through a reset link. Changing the
// password invalidates the link.
func (m *Manager) ResetPassword(ctx context.Context, uid, tok, password, confirm string) error {
	if password != confirm {
		return invalid("confirm_password", "Passwords do not match.")
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	user, err := m.CheckResetLink(ctx, uid, tok)
	if err != nil {
		return err
	}
	hash, err := m.hash(password)
	if err != nil {
		return err
	}
	if err := m.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	logrus.WithField("user_id", user.ID).Info("Password reset")
	return nil
}

func (m *Manager) userFromUID(ctx context.Context, uid string) (*domain.User, error) {
	id, err := token.DecodeUID(uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUID, err)
	}
	var user domain.User
	err = m.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

func (m *Manager) exists(ctx context.Context, query string, arg any) (bool, error) {
	var n int64
	if err := m.db.WithContext(ctx).Model(&domain.User{}).Where(query, arg).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (m *Manager) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), m.HashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}
	return nil
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
