package wire_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"eventhub/internal/data/repository/repotest"
	"eventhub/internal/dto/request"
	"eventhub/internal/notify"
	"eventhub/internal/usecase"
	"eventhub/internal/wire"
	"eventhub/pkg/token"
	"eventhub/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testApp struct {
	fx      *repotest.Fixture
	clock   *clock
	service *usecase.Service
	router  http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	config := &utils.Config{
		App:       utils.AppConfig{Name: "eventhub", Env: utils.EnvProduction, PostLoginURL: "/dashboard"},
		Session:   utils.SessionConfig{Secret: "test-secret"},
		RateLimit: utils.RateLimitConfig{RPS: 1000, Burst: 1000},
	}
	require.NoError(t, config.Validate())

	signer, err := token.NewSigner(config.Session.Secret, config.Session.Expiry(), config.App.Name)
	require.NoError(t, err)

	app := &testApp{fx: repotest.New(), clock: &clock{t: time.Now()}}
	app.service = usecase.NewService(usecase.Deps{
		Repo:   app.fx.Repo,
		Config: config,
		Sender: notify.NewLogSender(zap.NewNop()),
		Signer: signer,
		Log:    zap.NewNop(),
		Now:    app.clock.Now,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	app.router = wire.Wiring(ctx, app.service, app.fx.Repo, config, zap.NewNop()).Router
	return app
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session_token" {
			return c
		}
	}
	return nil
}

type loginData struct {
	Success bool `json:"success"`
	User    struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Role      string `json:"role"`
	} `json:"user"`
	RedirectURL string `json:"redirectUrl"`
}

// login issues and verifies a code for email and returns the session cookie.
func (a *testApp) login(t *testing.T, email string) (*http.Cookie, loginData) {
	t.Helper()

	rr, _ := a.do(t, http.MethodPost, "/auth/otp/issue", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, rr.Code)

	code := a.fx.OTP.Latest(email).Code
	rr, env := a.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{"email": email, "code": code})
	require.Equal(t, http.StatusOK, rr.Code, env.Message)

	var data loginData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	return cookie, data
}

func TestIssueVerify_EndToEnd(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	rr, env := app.do(t, http.MethodPost, "/auth/otp/issue", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	var issued struct {
		Success   bool   `json:"success"`
		EventName string `json:"eventName"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	assert.True(t, issued.Success)
	assert.Equal(t, "GopherCon", issued.EventName)

	code := app.fx.OTP.Latest("a@x.com").Code
	rr, env = app.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{"email": "a@x.com", "code": code})
	require.Equal(t, http.StatusOK, rr.Code)

	var data loginData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Success)
	assert.Equal(t, "a@x.com", data.User.Email)
	assert.Equal(t, "participant", data.User.Role)
	assert.Equal(t, "Alice", data.User.FirstName)
	assert.Equal(t, "/dashboard", data.RedirectURL)
	assert.True(t, app.fx.OTP.Latest("a@x.com").Used)

	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.InDelta(t, 30*24*60*60, cookie.MaxAge, 5)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestVerify_NeverIssuedCode(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	rr, env := app.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{"email": "a@x.com", "code": "000000"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, usecase.MsgInvalidCode, env.Message)
	assert.Nil(t, sessionCookie(rr))
}

func TestVerify_AfterExpiry(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	rr, _ := app.do(t, http.MethodPost, "/auth/otp/issue", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	code := app.fx.OTP.Latest("a@x.com").Code

	app.clock.Advance(11 * time.Minute)

	rr, env := app.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{"email": "a@x.com", "code": code})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, usecase.MsgInvalidCode, env.Message)
}

func TestVerify_ReplayIsRejected(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	app.login(t, "a@x.com")

	code := app.fx.OTP.Latest("a@x.com").Code
	rr, env := app.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{"email": "a@x.com", "code": code})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, usecase.MsgInvalidCode, env.Message)
}

func TestIssue_ClientErrors(t *testing.T) {
	app := newTestApp(t)

	rr, env := app.do(t, http.MethodPost, "/auth/otp/issue", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Errors, "email")

	rr, _ = app.do(t, http.MethodPost, "/auth/otp/issue", map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/otp/issue", bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	app.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestVerify_MissingFields(t *testing.T) {
	app := newTestApp(t)

	rr, env := app.do(t, http.MethodPost, "/auth/otp/verify", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Errors, "code")
}

func TestSessionCreate_Refresh(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	cookie, data := app.login(t, "a@x.com")

	body := request.CreateSessionRequest{UserID: data.User.ID, Email: "a@x.com"}

	rr, _ := app.do(t, http.MethodPost, "/auth/session/create", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, env := app.do(t, http.MethodPost, "/auth/session/create", body, cookie)
	require.Equal(t, http.StatusOK, rr.Code, env.Message)
	refreshed := sessionCookie(rr)
	require.NotNil(t, refreshed)
	assert.NotEqual(t, cookie.Value, refreshed.Value)

	other := request.CreateSessionRequest{UserID: "5f0c7c1e-3b7a-4c5e-9d1a-2b3c4d5e6f70", Email: "a@x.com"}
	rr, _ = app.do(t, http.MethodPost, "/auth/session/create", other, cookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = app.do(t, http.MethodPost, "/auth/session/create", map[string]string{"email": "a@x.com"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionCreate_AutoLoginToken(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	issued, err := app.service.Auth.IssueAutoLogin(context.Background(), &request.AutoLoginRequest{Email: "a@x.com"})
	require.NoError(t, err)

	body := request.CreateSessionRequest{Email: "a@x.com", Token: issued.Token}
	rr, _ := app.do(t, http.MethodPost, "/auth/session/create", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, sessionCookie(rr))

	rr, env := app.do(t, http.MethodPost, "/auth/session/create", body)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, usecase.MsgInvalidCode, env.Message)
}

func TestMeAndLogout(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	cookie, _ := app.login(t, "a@x.com")

	rr, _ := app.do(t, http.MethodGet, "/auth/session", nil, cookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = app.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	cleared := sessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	rr, _ = app.do(t, http.MethodGet, "/auth/session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = app.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPasswordLogin_Endpoint(t *testing.T) {
	app := newTestApp(t)
	_, err := app.service.Auth.CreateAdmin(context.Background(), &request.CreateAdminRequest{
		Email: "root@x.com", Name: "Root Admin", Password: "a-long-enough-password", Role: "admin",
	})
	require.NoError(t, err)

	rr, _ := app.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "root@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, env := app.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "root@x.com", "password": "a-long-enough-password"})
	require.Equal(t, http.StatusOK, rr.Code)
	var data loginData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "/admin", data.RedirectURL)
}

func TestAdminCleanup_RequiresElevatedRole(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	participant, _ := app.login(t, "a@x.com")

	_, err := app.service.Auth.CreateAdmin(context.Background(), &request.CreateAdminRequest{
		Email: "org@x.com", Name: "Olga Organizer", Password: "a-long-enough-password", Role: "organizer",
	})
	require.NoError(t, err)
	rr, _ := app.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "org@x.com", "password": "a-long-enough-password"})
	require.Equal(t, http.StatusOK, rr.Code)
	organizer := sessionCookie(rr)
	require.NotNil(t, organizer)

	rr, _ = app.do(t, http.MethodPost, "/admin/otp/cleanup", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = app.do(t, http.MethodPost, "/admin/otp/cleanup", nil, participant)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	app.clock.Advance(time.Hour)
	rr, env := app.do(t, http.MethodPost, "/admin/otp/cleanup", nil, organizer)
	require.Equal(t, http.StatusOK, rr.Code)
	var data struct {
		Success bool  `json:"success"`
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Success)
	assert.Equal(t, int64(1), data.Deleted)
}

func TestAdminAutoLogin_Endpoint(t *testing.T) {
	app := newTestApp(t)
	app.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	_, err := app.service.Auth.CreateAdmin(context.Background(), &request.CreateAdminRequest{
		Email: "root@x.com", Name: "Root Admin", Password: "a-long-enough-password", Role: "admin",
	})
	require.NoError(t, err)
	rr, _ := app.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "root@x.com", "password": "a-long-enough-password"})
	admin := sessionCookie(rr)
	require.NotNil(t, admin)

	rr, env := app.do(t, http.MethodPost, "/admin/auto-login", map[string]string{"email": "a@x.com"}, admin)
	require.Equal(t, http.StatusCreated, rr.Code)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)

	rr, _ = app.do(t, http.MethodPost, "/admin/auto-login", map[string]string{"email": "ghost@x.com"}, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rr, env := app.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Status)
}
