package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventhub/internal/data/repository/repotest"
	"eventhub/internal/notify"
	"eventhub/internal/usecase"
	"eventhub/pkg/token"
	"eventhub/pkg/utils"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
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

type harness struct {
	fx      *repotest.Fixture
	config  *utils.Config
	sender  *mockSender
	signer  *token.Signer
	clock   *clock
	service *usecase.Service
}

func newHarness(t *testing.T, opts ...func(*utils.Config)) *harness {
	t.Helper()

	config := &utils.Config{
		App:     utils.AppConfig{Name: "eventhub", PostLoginURL: "/dashboard"},
		Session: utils.SessionConfig{Secret: "test-secret"},
	}
	for _, opt := range opts {
		opt(config)
	}
	require.NoError(t, config.Validate())

	signer, err := token.NewSigner(config.Session.Secret, config.Session.Expiry(), config.App.Name)
	require.NoError(t, err)

	h := &harness{
		fx:     repotest.New(),
		config: config,
		sender: &mockSender{},
		signer: signer,
		clock:  &clock{t: time.Now().UTC().Truncate(time.Second)},
	}
	h.sender.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	h.service = usecase.NewService(usecase.Deps{
		Repo:   h.fx.Repo,
		Config: config,
		Sender: h.sender,
		Signer: signer,
		Log:    zap.NewNop(),
		Now:    h.clock.Now,
	})
	return h
}

// issue runs the code issuer for email and returns the stored code value.
func (h *harness) issue(t *testing.T, email string) string {
	t.Helper()
	_, err := h.service.OTP.Issue(context.Background(), email)
	require.NoError(t, err)
	latest := h.fx.OTP.Latest(utils.NormalizeEmail(email))
	require.NotNil(t, latest)
	return latest.Code
}
