package app_integration_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Black-And-White-Club/spinboard/app"
	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	roundtypes "github.com/Black-And-White-Club/spinboard/app/modules/round/domain/types"
	"github.com/Black-And-White-Club/spinboard/config"
)

const (
	entryFee roundtypes.Amount = 100
	operator                   = "house"
)

// testConfig points the app at the shared containers. NATS and the NATS
// wallet are off unless natsEnabled.
func testConfig(natsEnabled bool) *config.Config {
	cfg := config.Defaults()
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = testEnv.DSN
	cfg.NATS.Enabled = natsEnabled
	cfg.NATS.URL = testEnv.NatsURL
	cfg.HTTP.Address = "127.0.0.1:0"
	cfg.HTTP.RatePerSecond = 1000
	cfg.HTTP.RateBurst = 1000
	cfg.Auth.Secret = "integration-secret-at-least-32-chars"
	cfg.Observability.LogFormat = "text"
	cfg.Observability.LogLevel = "warn"
	cfg.Game.EntryFee = int64(entryFee)
	cfg.Game.Operator = operator
	cfg.Game.EntropySecret = "integration"
	if natsEnabled {
		cfg.Wallet.Mode = "nats"
	}
	return cfg
}

type running struct {
	app    *app.App
	server *httptest.Server
	cancel context.CancelFunc
	done   chan error
}

// startApp initializes and runs an App. It is closed when the test ends
// unless stop is called first.
func startApp(t *testing.T, cfg *config.Config) *running {
	t.Helper()

	a := &app.App{}
	require.NoError(t, a.Initialize(context.Background(), cfg))

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		app:    a,
		server: httptest.NewServer(a.HTTPRouter),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { r.done <- a.Run(ctx) }()

	select {
	case <-a.Router.Running():
	case <-time.After(10 * time.Second):
		t.Fatal("watermill router did not start")
	}

	t.Cleanup(r.stop)
	return r
}

func (r *running) stop() {
	if r.server == nil {
		return
	}
	r.server.Close()
	r.server = nil
	r.cancel()
	<-r.done
	r.app.Close()
}

func (r *running) token(t *testing.T, identity string) string {
	t.Helper()
	role := authdomain.RolePlayer
	if identity == operator {
		role = authdomain.RoleOperator
	}
	resp, err := r.app.AuthModule.GetService().IssueToken(context.Background(), identity, role)
	require.NoError(t, err)
	return resp.Token
}

func (r *running) do(t *testing.T, method, path, identity, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, r.server.URL+path, reader)
	require.NoError(t, err)
	if identity != "" {
		req.Header.Set("Authorization", "Bearer "+r.token(t, identity))
	}
	resp, err := r.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (r *running) join(t *testing.T, identity string) {
	t.Helper()
	status, body := r.do(t, http.MethodPost, "/api/round/join", identity, fmt.Sprintf(`{"amount":%d}`, entryFee))
	require.Equal(t, http.StatusOK, status, string(body))
}

func (r *running) draw(t *testing.T, identity string) roundtypes.DrawReceipt {
	t.Helper()
	status, body := r.do(t, http.MethodPost, "/api/round/draw", identity, "")
	require.Equal(t, http.StatusOK, status, string(body))
	var receipt roundtypes.DrawReceipt
	require.NoError(t, json.Unmarshal(body, &receipt))
	return receipt
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
