package account

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"expense_tracker/internal/db"
	"expense_tracker/internal/domain"
	"expense_tracker/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type sentMail struct {
	subject, body, from string
	to                  []string
}

// recordingNotifier keeps every message instead of sending it.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingNotifier) Send(subject, body, from string, to []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{subject, body, from, to})
	return true
}

func (r *recordingNotifier) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

// linkParts extracts the uid and token from the last path segments of the
// link on the last line of a mail body.
func linkParts(body string) (uid, tok string) {
	lines := strings.Split(body, "\n")
	parts := strings.Split(lines[len(lines)-1], "/")
	return parts[len(parts)-2], parts[len(parts)-1]
}

type ManagerSuite struct {
	suite.Suite
	db       *gorm.DB
	notifier *recordingNotifier
	mgr      *Manager
	ctx      context.Context
}

func (s *ManagerSuite) SetupTest() {
	gdb, err := db.OpenSQLite(":memory:", nil)
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(gdb))
	s.db = gdb
	s.notifier = &recordingNotifier{}
	s.mgr = NewManager(gdb, token.NewService("test-secret", time.Hour), s.notifier, "noreply@example.com")
	s.mgr.HashCost = bcrypt.MinCost
	s.ctx = context.Background()
}

func (s *ManagerSuite) register(username, email string) *domain.User {
	u, err := s.mgr.Register(s.ctx, RegisterInput{Username: username, Email: email, Password: "secret1", LinkBase: "http://test"})
	s.Require().NoError(err)
	return u
}

func (s *ManagerSuite) activate(u *domain.User) {
	s.Require().NoError(s.db.Model(u).Update("is_active", true).Error)
}

func (s *ManagerSuite) TestRegisterCreatesInactiveUserAndMailsLink() {
	u := s.register("alice", "alice@example.com")
	s.False(u.IsActive)

	mail := s.notifier.last()
	s.Equal("Activate your account", mail.subject)
	s.Equal([]string{"alice@example.com"}, mail.to)
	s.Equal("noreply@example.com", mail.from)
	s.Contains(mail.body, "http://test/activate/"+token.EncodeUID(u.ID)+"/")

	var stored domain.User
	s.Require().NoError(s.db.First(&stored, u.ID).Error)
	s.NotEqual("secret1", stored.Password)
}

func (s *ManagerSuite) TestRegisterRejectsDuplicates() {
	s.register("alice", "alice@example.com")

	_, err := s.mgr.Register(s.ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret1"})
	s.True(IsValidation(err))
	_, err = s.mgr.Register(s.ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "secret1"})
	s.True(IsValidation(err))

	var n int64
	s.Require().NoError(s.db.Model(&domain.User{}).Count(&n).Error)
	s.EqualValues(1, n)
}

func (s *ManagerSuite) TestRegisterRejectsBadInput() {
	cases := map[string]RegisterInput{
		"short password": {Username: "carol", Email: "carol@example.com", Password: "12345"},
		"bad username":   {Username: "ca rol!", Email: "carol@example.com", Password: "secret1"},
		"bad email":      {Username: "carol", Email: "not-an-email", Password: "secret1"},
	}
	for name, in := range cases {
		_, err := s.mgr.Register(s.ctx, in)
		s.True(IsValidation(err), name)
	}
	s.Empty(s.notifier.sent)
}

func (s *ManagerSuite) TestActivateOnceThenNoOp() {
	u := s.register("alice", "alice@example.com")
	uid, tok := linkParts(s.notifier.last().body)

	activated, err := s.mgr.Activate(s.ctx, uid, tok)
	s.Require().NoError(err)
	s.Equal(u.ID, activated.ID)

	_, err = s.mgr.Activate(s.ctx, uid, tok)
	s.ErrorIs(err, ErrAlreadyActive)

	var stored domain.User
	s.Require().NoError(s.db.First(&stored, u.ID).Error)
	s.True(stored.IsActive)
}

func (s *ManagerSuite) TestActivateRejectsTamperedToken() {
	u := s.register("alice", "alice@example.com")
	uid, tok := linkParts(s.notifier.last().body)

	_, err := s.mgr.Activate(s.ctx, uid, tok[:len(tok)-2]+"zz")
	s.ErrorIs(err, ErrTokenInvalid)

	var stored domain.User
	s.Require().NoError(s.db.First(&stored, u.ID).Error)
	s.False(stored.IsActive)
}

func (s *ManagerSuite) TestActivateLookupFailures() {
	_, err := s.mgr.Activate(s.ctx, "%%%", "tok")
	s.ErrorIs(err, ErrMalformedUID)

	_, err = s.mgr.Activate(s.ctx, token.EncodeUID(999), "tok")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ManagerSuite) TestLogin() {
	u := s.register("alice", "alice@example.com")

	_, err := s.mgr.Login(s.ctx, "alice", "secret1")
	s.ErrorIs(err, ErrInactive)

	s.activate(u)
	logged, err := s.mgr.Login(s.ctx, "alice", "secret1")
	s.Require().NoError(err)
	s.NotNil(logged.LastLogin)

	_, err = s.mgr.Login(s.ctx, "alice", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.mgr.Login(s.ctx, "nobody", "secret1")
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.mgr.Login(s.ctx, "", "secret1")
	s.True(IsValidation(err))
}

func (s *ManagerSuite) TestForgotPasswordDoesNotRevealUnknownEmail() {
	s.NoError(s.mgr.ForgotPassword(s.ctx, "ghost@example.com", "http://test"))
	s.Empty(s.notifier.sent)

	err := s.mgr.ForgotPassword(s.ctx, "not an email", "http://test")
	s.True(IsValidation(err))
}

func (s *ManagerSuite) TestResetPasswordFlow() {
	u := s.register("alice", "alice@example.com")
	s.activate(u)

	s.Require().NoError(s.mgr.ForgotPassword(s.ctx, "alice@example.com", "http://test"))
	mail := s.notifier.last()
	s.Equal("Reset your password", mail.subject)
	uid, tok := linkParts(mail.body)

	_, err := s.mgr.CheckResetLink(s.ctx, uid, tok)
	s.Require().NoError(err)

	s.True(IsValidation(s.mgr.ResetPassword(s.ctx, uid, tok, "newpass1", "newpass2")))
	s.True(IsValidation(s.mgr.ResetPassword(s.ctx, uid, tok, "short", "short")))

	s.Require().NoError(s.mgr.ResetPassword(s.ctx, uid, tok, "newpass1", "newpass1"))
	_, err = s.mgr.Login(s.ctx, "alice", "newpass1")
	s.NoError(err)

	// the link guarded the old password hash
	s.ErrorIs(s.mgr.ResetPassword(s.ctx, uid, tok, "another1", "another1"), ErrTokenInvalid)
}

func (s *ManagerSuite) TestResetTokenInvalidAfterDirectPasswordChange() {
	u := s.register("alice", "alice@example.com")
	s.activate(u)
	s.Require().NoError(s.mgr.ForgotPassword(s.ctx, "alice@example.com", "http://test"))
	uid, tok := linkParts(s.notifier.last().body)

	s.Require().NoError(s.db.Model(&domain.User{}).Where("id = ?", u.ID).Update("password", "changed-elsewhere").Error)

	_, err := s.mgr.CheckResetLink(s.ctx, uid, tok)
	s.ErrorIs(err, ErrTokenInvalid)
}

func (s *ManagerSuite) TestValidateEndpoints() {
	s.register("alice", "alice@example.com")

	s.NoError(s.mgr.ValidateUsername(s.ctx, "bob"))
	s.True(IsValidation(s.mgr.ValidateUsername(s.ctx, "alice")))
	s.True(IsValidation(s.mgr.ValidateUsername(s.ctx, "bob smith")))

	s.NoError(s.mgr.ValidateEmail(s.ctx, "bob@example.com"))
	s.True(IsValidation(s.mgr.ValidateEmail(s.ctx, "alice@example.com")))
	s.True(IsValidation(s.mgr.ValidateEmail(s.ctx, "bob@")))
}

func (s *ManagerSuite) TestPreferencesCreatedLazily() {
	u := s.register("alice", "alice@example.com")

	pref, err := s.mgr.Preferences(s.ctx, u.ID, "INR")
	s.Require().NoError(err)
	s.Equal("INR", pref.Currency)

	_, err = s.mgr.SetCurrency(s.ctx, u.ID, "eur", "INR")
	s.Require().NoError(err)
	pref, err = s.mgr.Preferences(s.ctx, u.ID, "INR")
	s.Require().NoError(err)
	s.Equal("EUR", pref.Currency)

	_, err = s.mgr.SetCurrency(s.ctx, u.ID, "XX1", "INR")
	s.True(IsValidation(err))
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func TestValidationErrorMessage(t *testing.T) {
	err := invalid("password", "too short")
	require.True(t, IsValidation(err))
	assert.Equal(t, "too short", err.Error())
}
