package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cppla/quillpost/config"
	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/utils"
)

// recordingMailer keeps every message instead of delivering it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []utils.Mail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg utils.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// lastToken returns the code query parameter of the link in the newest message.
func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	text := m.sent[len(m.sent)-1].Text
	i := strings.Index(text, "http")
	require.GreaterOrEqual(t, i, 0, "no link in %q", text)
	u, err := url.Parse(strings.TrimSpace(text[i:]))
	require.NoError(t, err)
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

type testEnv struct {
	cfg    config.AppConfig
	db     *gorm.DB
	users  *repository.UserStore
	posts  *repository.PostStore
	resets *repository.ResetRequestStore
	mailer *recordingMailer
	tokens *utils.TokenService
	hasher *utils.PasswordHasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.AppConfig{
		DBDriver:      "sqlite",
		DatabaseURI:   ":memory:",
		LogLevel:      "silent",
		JWTSecret:     "services-test-secret-0123",
		PublicBaseURL: "http://front.test",
	}
	db, err := config.OpenDatabase(cfg, zap.NewNop(), models.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	tokens, err := utils.NewTokenService(cfg.JWTSecret)
	require.NoError(t, err)

	return &testEnv{
		cfg:    cfg,
		db:     db,
		users:  repository.NewUserStore(db),
		posts:  repository.NewPostStore(db),
		resets: repository.NewResetRequestStore(db),
		mailer: &recordingMailer{},
		tokens: tokens,
		hasher: utils.NewPasswordHasher(bcrypt.MinCost),
	}
}

func (e *testEnv) auth() *AuthService {
	return NewAuthService(e.cfg, e.users, e.resets, e.mailer, e.tokens, e.hasher, zap.NewNop())
}

// verifiedUser registers an email account and verifies it through the mailed link.
func (e *testEnv) verifiedUser(t *testing.T, name, email, password string) uint {
	t.Helper()
	ctx := context.Background()
	svc := e.auth()
	res, err := svc.Register(ctx, RegisterInput{FullName: name, Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, svc.VerifyEmail(ctx, e.mailer.lastToken(t)))
	return res.UserID
}

func (e *testEnv) session(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := e.tokens.Issue(utils.SessionClaim{UserID: userID}, SessionTTL)
	require.NoError(t, err)
	return tok
}

var errSMTPDown = errors.New("smtp down")

// resetRequests counts the reset markers stored for userID.
func (e *testEnv) resetRequests(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.PasswordResetRequest{}).
		Where("user_id = ?", strconv.FormatUint(uint64(userID), 10)).Count(&n).Error)
	return n
}
