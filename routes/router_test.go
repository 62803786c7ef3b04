package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/quillpost/config"
	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

type outbox struct {
	mu   sync.Mutex
	sent []utils.Mail
}

func (o *outbox) Send(_ context.Context, m utils.Mail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

// lastCode extracts the token from the link in the newest message.
func (o *outbox) lastCode(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	text := o.sent[len(o.sent)-1].Text
	u, err := url.Parse(text[strings.Index(text, "http"):])
	require.NoError(t, err)
	return u.Query().Get("code")
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	mail   *outbox
	users  *repository.UserStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.AppConfig{
		GinMode:        "test",
		DBDriver:       "sqlite",
		DatabaseURI:    ":memory:",
		LogLevel:       "silent",
		JWTSecret:      "router-test-secret-0123456",
		PublicBaseURL:  "http://front.test",
		AllowedOrigins: []string{"*"},
	}
	log := zap.NewNop()
	db, err := config.OpenDatabase(cfg, log, models.All()...)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	tokens, err := utils.NewTokenService(cfg.JWTSecret)
	require.NoError(t, err)
	users := repository.NewUserStore(db)
	posts := repository.NewPostStore(db)
	mail := &outbox{}

	r := SetupRouter(Dependencies{
		Config: cfg,
		Log:    log,
		Auth:   services.NewAuthService(cfg, users, repository.NewResetRequestStore(db), mail, tokens, utils.NewPasswordHasher(bcrypt.MinCost), log),
		OAuth:  services.NewOAuthService(cfg, users, tokens, utils.NewStateStore(nil), nil, log),
		Posts:  services.NewPostService(posts, users, tokens, log),
		Users:  services.NewUserService(users, tokens, log),
		Ping:   sqlDB.PingContext,
	})
	return &testServer{router: r, mail: mail, users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) signUpAndIn(t *testing.T, name, email string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/auth/register", gin.H{"fullName": name, "email": email, "password": "secret"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = s.do(t, http.MethodGet, "/auth/emailVerify/"+s.mail.lastCode(t), nil)
	require.Equal(t, http.StatusOK, status)

	status, env := s.do(t, http.MethodPost, "/auth/login", gin.H{"email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, status)
	var login struct{ Token string }
	require.NoError(t, json.Unmarshal(env.Data, &login))
	return login.Token
}

func TestRegisterVerifyLogin_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/auth/register", gin.H{"fullName": "Ann", "email": "a@x.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Len(t, s.mail.sent, 1)

	user, err := s.users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)

	status, env = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40103, env.Code)
	require.Len(t, s.mail.sent, 2)

	status, _ = s.do(t, http.MethodGet, "/auth/emailVerify/"+s.mail.lastCode(t), nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "secret"})
	require.Equal(t, http.StatusOK, status)
	var login struct {
		Token string `json:"token"`
		User  string `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "Ann", login.User)
	assert.NotEmpty(t, login.Token)
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndIn(t, "Ann", "a@x.com")

	status, env := s.do(t, http.MethodPost, "/auth/register", gin.H{"fullName": "Ann", "email": "a@x.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40002, env.Code)

	status, _ = s.do(t, http.MethodPost, "/auth/register", gin.H{"fullName": "Ann", "email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "nobody@x.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "User doesn't exist!", env.Message)

	status, _ = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/auth/emailVerify/garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/auth/resendEmail", gin.H{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/auth/forgotPassword", gin.H{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGuardAndWorkflowCodesDiffer(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndIn(t, "Ann", "a@x.com")
	status, _ := s.do(t, http.MethodPost, "/auth/register", gin.H{"fullName": "Bob", "email": "b@x.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, status)

	codes := map[string]int{}
	record := func(name string, wantStatus int, method, path string, body interface{}, headers ...string) {
		status, env := s.do(t, method, path, body, headers...)
		require.Equal(t, wantStatus, status, name)
		codes[name] = env.Code
	}
	record("wrong password", http.StatusUnauthorized, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "wrong"})
	record("unverified login", http.StatusUnauthorized, http.MethodPost, "/auth/login", gin.H{"email": "b@x.com", "password": "secret"})
	record("bad verify token", http.StatusUnauthorized, http.MethodGet, "/auth/emailVerify/garbage", nil)
	record("unknown user", http.StatusUnauthorized, http.MethodPost, "/auth/login", gin.H{"email": "nobody@x.com", "password": "x"})
	record("missing bearer", http.StatusUnauthorized, http.MethodDelete, "/post/deletePost/1", nil)
	record("bad header format", http.StatusUnauthorized, http.MethodDelete, "/post/deletePost/1", nil, "Authorization", "Token abc")
	record("empty bearer", http.StatusUnauthorized, http.MethodDelete, "/post/deletePost/1", nil, "Authorization", "Bearer  ")
	record("invalid bearer", http.StatusUnauthorized, http.MethodDelete, "/post/deletePost/1", nil, "Authorization", "Bearer nope")

	seen := map[int]string{}
	for name, code := range codes {
		if prev, ok := seen[code]; ok {
			t.Errorf("%q and %q both answered code %d", prev, name, code)
		}
		seen[code] = name
	}
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndIn(t, "Ann", "a@x.com")

	status, _ := s.do(t, http.MethodPost, "/auth/forgotPassword", gin.H{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/auth/resetPassword/"+s.mail.lastCode(t), gin.H{"password": "brand-new"})
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "brand-new"})
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/auth/resetPassword/not-a-token", gin.H{"password": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPostRoutes(t *testing.T) {
	s := newTestServer(t)
	ann := s.signUpAndIn(t, "Ann", "a@x.com")
	bob := s.signUpAndIn(t, "Bob", "b@x.com")

	status, env := s.do(t, http.MethodPost, "/post/create/"+ann, gin.H{"title": "Hello", "content": "World"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created.Post.ID
	require.NotZero(t, id)
	path := "/" + jsonNumber(id)

	status, env = s.do(t, http.MethodPost, "/post/create/"+ann, gin.H{"title": "", "content": "World"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "All fields are required!", env.Message)

	status, _ = s.do(t, http.MethodPost, "/post/create/bogus", gin.H{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(t, http.MethodGet, "/post/getAllPost", nil)
	require.Equal(t, http.StatusOK, status)
	var all []models.Post
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)

	status, env = s.do(t, http.MethodGet, "/post/getUserPost/"+jsonNumber(created.Post.AuthorID), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 1)

	status, _ = s.do(t, http.MethodGet, "/post"+path, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPut, "/post/updatePost"+path, gin.H{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.do(t, http.MethodPut, "/post/updatePost"+path, gin.H{"title": "x", "content": "y"}, "Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodPut, "/post/updatePost"+path, gin.H{"title": "Hello 2", "content": "y"}, "Authorization", "Bearer "+ann)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodDelete, "/post/deletePost"+path, nil, "Authorization", "Bearer "+bob)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodDelete, "/post/deletePost"+path, nil, "Authorization", "Bearer "+ann)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/post"+path, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/user/allUser", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "There are no users", env.Message)

	ann := s.signUpAndIn(t, "Ann", "a@x.com")
	status, _ = s.do(t, http.MethodPost, "/post/create/"+ann, gin.H{"title": "t", "content": "c"})
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(t, http.MethodGet, "/user/allUser", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Users []models.UserSummary `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Users, 1)
	assert.EqualValues(t, 1, list.Users[0].PostCount)
	assert.NotContains(t, string(env.Data), "password")

	status, env = s.do(t, http.MethodGet, "/user/singleUser/"+ann, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"full_name":"Ann"`)
	assert.NotContains(t, string(env.Data), "password_hash")

	status, _ = s.do(t, http.MethodGet, "/user/singleUser/bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodDelete, "/user/deleteUser/"+ann, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(t, http.MethodGet, "/user/singleUser/"+ann, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No user found", env.Message)
}

func TestOAuthRoutesWithoutProviders(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/auth/github/exchange", gin.H{"code": "abc"})
	assert.Equal(t, http.StatusBadGateway, status)

	status, _ = s.do(t, http.MethodPost, "/auth/google", gin.H{"token": "abc"})
	assert.Equal(t, http.StatusBadGateway, status)

	status, _ = s.do(t, http.MethodGet, "/auth/oauth/github/callback", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthAndNoRoute(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	status, env = s.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
