package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/internal/dto/request"
	"eventhub/internal/usecase"
	"eventhub/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verify(t *testing.T, h *harness, email, code string) (*usecase.IssuedSession, error) {
	t.Helper()
	_, issued, err := h.service.Auth.VerifyCode(context.Background(),
		&request.VerifyCodeRequest{Email: email, Code: code},
		usecase.ClientMeta{UserAgent: "test", IPAddress: "10.0.0.1"})
	return issued, err
}

func TestVerifyCode_CreatesParticipantAndSession(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	code := h.issue(t, "a@x.com")

	resp, issued, err := h.service.Auth.VerifyCode(context.Background(),
		&request.VerifyCodeRequest{Email: "a@x.com", Code: code}, usecase.ClientMeta{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.Equal(t, "Alice A", resp.User.Name)
	assert.Equal(t, "Alice", resp.User.FirstName)
	assert.Equal(t, "A", resp.User.LastName)
	assert.Equal(t, entity.RoleParticipant, resp.User.Role)
	assert.Equal(t, "/dashboard", resp.RedirectURL)
	assert.True(t, h.fx.OTP.Latest("a@x.com").Used)

	claims, err := h.signer.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.User.ID, claims.UserID)
	assert.Equal(t, "participant", claims.Role)
	assert.Equal(t, "Alice A", claims.Name)

	sess, ok := h.fx.Sessions.Get(issued.SessionID)
	require.True(t, ok)
	assert.Equal(t, issued.User.ID, sess.UserID)
	assert.Equal(t, 1, h.fx.Accounts.Count())
}

func TestVerifyCode_IdentityIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	first, err := verify(t, h, "a@x.com", h.issue(t, "a@x.com"))
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	second, err := verify(t, h, "A@x.com", h.issue(t, "a@x.com"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.fx.Users.Count())
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, h.fx.Accounts.Count())
	assert.Equal(t, 2, h.fx.Sessions.Count())
}

func TestVerifyCode_KeepsExistingRole(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("org@x.com", "Olga", "Organizer", "GopherCon")
	existing := entity.User{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		Email:        "org@x.com",
		Name:         "Olga",
		Role:         entity.RoleOrganizer,
	}
	h.fx.Users.Put(existing)

	resp, _, err := h.service.Auth.VerifyCode(context.Background(),
		&request.VerifyCodeRequest{Email: "org@x.com", Code: h.issue(t, "org@x.com")}, usecase.ClientMeta{})
	require.NoError(t, err)

	assert.Equal(t, existing.ID.String(), resp.User.ID)
	assert.Equal(t, entity.RoleOrganizer, resp.User.Role)
	assert.Equal(t, "/admin", resp.RedirectURL)
	assert.Equal(t, "Olga Organizer", resp.User.Name)
}

func TestVerifyCode_StaffRedirect(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("s@x.com", "Sam", "", "GopherCon")
	h.fx.Users.Put(entity.User{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		Email:        "s@x.com",
		Role:         entity.RoleStaff,
	})

	resp, _, err := h.service.Auth.VerifyCode(context.Background(),
		&request.VerifyCodeRequest{Email: "s@x.com", Code: h.issue(t, "s@x.com")}, usecase.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "/staff/check-in", resp.RedirectURL)
}

func TestVerifyCode_BookkeepingFailuresAreSwallowed(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	code := h.issue(t, "a@x.com")

	h.fx.Sessions.Err = errors.New("sessions table locked")
	h.fx.Accounts.Err = errors.New("accounts table locked")
	h.fx.Users.TouchErr = errors.New("users table locked")

	issued, err := verify(t, h, "a@x.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, 0, h.fx.Sessions.Count())
}

func TestVerifyCode_IdentityWriteFailureFailsClosed(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	code := h.issue(t, "a@x.com")
	h.fx.Users.UpsertErr = errors.New("constraint violation")

	_, err := verify(t, h, "a@x.com", code)
	require.Error(t, err)
	assert.False(t, errors.Is(err, usecase.ErrUnauthorized))
	assert.False(t, errors.Is(err, usecase.ErrNotFound))
	assert.Equal(t, 0, h.fx.Sessions.Count())

	stored := h.fx.OTP.Latest("a@x.com")
	require.NotNil(t, stored)
	assert.False(t, stored.Used, "code must stay unused when the identity write rolls back")

	h.fx.Users.UpsertErr = nil
	issued, err := verify(t, h, "a@x.com", code)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", issued.User.Email)
	assert.True(t, h.fx.OTP.Latest("a@x.com").Used)
}

func TestVerifyCode_RegistrationGoneAfterIssue(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	code := h.issue(t, "a@x.com")
	h.fx.Registrations.Remove("a@x.com")

	_, err := verify(t, h, "a@x.com", code)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assert.Equal(t, 0, h.fx.Users.Count())
}

func TestVerifyCode_EventDeletedAfterIssue(t *testing.T) {
	h := newHarness(t)
	reg := h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	code := h.issue(t, "a@x.com")
	h.fx.Registrations.RemoveEvent(reg.EventID)

	_, err := verify(t, h, "a@x.com", code)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assert.Equal(t, 0, h.fx.Users.Count())
	assert.False(t, h.fx.OTP.Latest("a@x.com").Used)
}

func TestCreateSession_RefreshOwnSession(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	first, err := verify(t, h, "a@x.com", h.issue(t, "a@x.com"))
	require.NoError(t, err)

	current := &utils.SessionIdentity{UserID: first.User.ID, Email: "a@x.com"}
	resp, issued, err := h.service.Auth.CreateSession(context.Background(),
		&request.CreateSessionRequest{UserID: first.User.ID.String(), Email: "A@x.com"}, current, usecase.ClientMeta{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.NotEqual(t, first.SessionID, issued.SessionID)
}

func TestCreateSession_RefreshRules(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	first, err := verify(t, h, "a@x.com", h.issue(t, "a@x.com"))
	require.NoError(t, err)
	own := &utils.SessionIdentity{UserID: first.User.ID, Email: "a@x.com"}
	ghostID := uuid.New()

	cases := []struct {
		name    string
		req     request.CreateSessionRequest
		current *utils.SessionIdentity
		want    error
	}{
		{"no session", request.CreateSessionRequest{UserID: first.User.ID.String(), Email: "a@x.com"}, nil, usecase.ErrUnauthorized},
		{"other user", request.CreateSessionRequest{UserID: uuid.NewString(), Email: "a@x.com"}, own, usecase.ErrForbidden},
		{"email mismatch", request.CreateSessionRequest{UserID: first.User.ID.String(), Email: "b@x.com"}, own, usecase.ErrForbidden},
		{"bad id", request.CreateSessionRequest{UserID: "nope", Email: "a@x.com"}, own, usecase.ErrValidation},
		{"neither variant", request.CreateSessionRequest{Email: "a@x.com"}, own, usecase.ErrValidation},
		{"unknown user", request.CreateSessionRequest{UserID: ghostID.String(), Email: "a@x.com"},
			&utils.SessionIdentity{UserID: ghostID}, usecase.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, _, err := h.service.Auth.CreateSession(context.Background(), &req, tc.current, usecase.ClientMeta{})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAutoLogin_IssueAndRedeemOnce(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	issued, err := h.service.Auth.IssueAutoLogin(context.Background(), &request.AutoLoginRequest{Email: "a@x.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), issued.ExpiresAt)

	redeem := func() error {
		_, _, err := h.service.Auth.CreateSession(context.Background(),
			&request.CreateSessionRequest{Email: "a@x.com", Token: issued.Token}, nil, usecase.ClientMeta{})
		return err
	}

	require.NoError(t, redeem())
	assert.ErrorIs(t, redeem(), usecase.ErrInvalidCode)
	assert.Equal(t, 1, h.fx.Users.Count())
}

func TestAutoLogin_Expires(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")

	issued, err := h.service.Auth.IssueAutoLogin(context.Background(), &request.AutoLoginRequest{Email: "a@x.com"})
	require.NoError(t, err)
	h.clock.Advance(16 * time.Minute)

	_, _, err = h.service.Auth.CreateSession(context.Background(),
		&request.CreateSessionRequest{Email: "a@x.com", Token: issued.Token}, nil, usecase.ClientMeta{})
	assert.ErrorIs(t, err, usecase.ErrInvalidCode)
}

func TestAutoLogin_UnknownRegistrant(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Auth.IssueAutoLogin(context.Background(), &request.AutoLoginRequest{Email: "ghost@x.com"})
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestPasswordLogin(t *testing.T) {
	h := newHarness(t)

	admin, err := h.service.Auth.CreateAdmin(context.Background(), &request.CreateAdminRequest{
		Email:    "Root@X.com",
		Name:     "Root Admin",
		Password: "a-long-enough-password",
		Role:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "root@x.com", admin.Email)
	assert.Equal(t, entity.RoleAdmin, admin.Role)

	resp, issued, err := h.service.Auth.PasswordLogin(context.Background(),
		&request.PasswordLoginRequest{Email: "root@x.com", Password: "a-long-enough-password"}, usecase.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "/admin", resp.RedirectURL)
	assert.NotEmpty(t, issued.Token)

	_, _, err = h.service.Auth.PasswordLogin(context.Background(),
		&request.PasswordLoginRequest{Email: "root@x.com", Password: "wrong-password"}, usecase.ClientMeta{})
	assert.ErrorIs(t, err, usecase.ErrInvalidCredentials)
}

func TestPasswordLogin_OTPOnlyIdentityRejected(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	_, err := verify(t, h, "a@x.com", h.issue(t, "a@x.com"))
	require.NoError(t, err)

	_, _, err = h.service.Auth.PasswordLogin(context.Background(),
		&request.PasswordLoginRequest{Email: "a@x.com", Password: "anything"}, usecase.ClientMeta{})
	assert.ErrorIs(t, err, usecase.ErrInvalidCredentials)

	_, _, err = h.service.Auth.PasswordLogin(context.Background(),
		&request.PasswordLoginRequest{Email: "ghost@x.com", Password: "anything"}, usecase.ClientMeta{})
	assert.ErrorIs(t, err, usecase.ErrInvalidCredentials)
}

func TestCreateAdmin_UpdatesExistingAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.service.Auth.CreateAdmin(ctx, &request.CreateAdminRequest{
		Email: "root@x.com", Name: "Root", Password: "a-long-enough-password", Role: "organizer",
	})
	require.NoError(t, err)

	second, err := h.service.Auth.CreateAdmin(ctx, &request.CreateAdminRequest{
		Email: "root@x.com", Name: "Root Admin", Password: "another-long-password", Role: "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Root Admin", second.Name)
	assert.Equal(t, entity.RoleAdmin, second.Role)
	assert.Equal(t, 1, h.fx.Users.Count())

	_, _, err = h.service.Auth.PasswordLogin(ctx,
		&request.PasswordLoginRequest{Email: "root@x.com", Password: "another-long-password"}, usecase.ClientMeta{})
	assert.NoError(t, err)
}

func TestCreateAdmin_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Auth.CreateAdmin(context.Background(), &request.CreateAdminRequest{
		Email: "root@x.com", Name: "Root", Password: "short", Role: "superuser",
	})
	var verr *usecase.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "role")
}

func TestCleanupCodes_ReportsCount(t *testing.T) {
	h := newHarness(t)
	h.fx.Registrations.Add("a@x.com", "Alice", "A", "GopherCon")
	h.issue(t, "a@x.com")
	h.clock.Advance(time.Hour)

	resp, err := h.service.Auth.CleanupCodes(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.Deleted)
}
