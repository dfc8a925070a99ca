package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mansourkira/evoluflow/apps/api/echo"
	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/resource"
	"github.com/mansourkira/evoluflow/core/user"
	emailsvc "github.com/mansourkira/evoluflow/services/email"
	logsvc "github.com/mansourkira/evoluflow/services/logger"
	metricsvc "github.com/mansourkira/evoluflow/services/metrics"
	inmemdb "github.com/mansourkira/evoluflow/storage/database/inmem"
	testutil "github.com/mansourkira/evoluflow/tests"
)

const backendToken = "backend-token"

type testEnv struct {
	app     *Server
	conf    *core.Config
	backend *testutil.Backend
	metrics *metricsvc.Metrics

	// mock mode only
	usrSvc  *user.Service
	mailSvc *emailsvc.ConsoleService
}

func testConf(mode string) *core.Config {
	conf := &core.Config{AppName: "Evoluflow", SecretKey: "secret", TestMode: true}
	conf.Server.DisableReqLogs = true
	conf.Server.FrontendBaseURL = "http://localhost:3001"
	conf.Auth.Mode = mode
	conf.Auth.CookieName = "auth-token"
	conf.Auth.LoginRateLimit = 100
	conf.Auth.LoginBurst = 100
	conf.Auth.PasswordResetTimeout = 24 * time.Hour
	conf.Backend.Timeout = 5 * time.Second
	return conf
}

// setup serves the API over a fake backend. Options tweak the config before the server is built.
func setup(t *testing.T, mode string, options ...func(*core.Config)) testEnv {
	t.Helper()
	conf := testConf(mode)
	for _, opt := range options {
		opt(conf)
	}

	env := testEnv{
		conf:    conf,
		backend: testutil.NewBackend(t, backendToken),
		metrics: metricsvc.NewMetrics(),
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	tr := resource.NewTransport(env.backend.BaseURL(), &http.Client{Timeout: conf.Backend.Timeout}, nil)

	deps := ServerDeps{
		Conf:    conf,
		Logger:  logger,
		Backend: tr,
		Metrics: env.metrics,
	}
	if mode == core.AuthModeMock {
		repo := inmemdb.NewUserRepository(inmemdb.NewDB())
		require.NoError(t, user.Seed(context.Background(), repo, user.DefaultUsers...))
		env.mailSvc = emailsvc.NewConsoleServiceMock(conf, logger)
		env.usrSvc = user.NewServiceMock(repo, env.mailSvc, conf, logger)
		deps.Auth = env.usrSvc
		deps.Translator = env.usrSvc.Translator()
	} else {
		deps.Auth = user.NewRemoteService(tr)
		deps.Translator = core.NewTranslator()
	}

	env.app = NewServer(deps)
	t.Cleanup(func() { _ = env.app.Close() })
	return env
}

type httpErr struct {
	Error string `json:"error"`
}

type authErr struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	env.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, env.serve(req, rec))
		})
	}
}

// login authenticates through the API and returns the token.
func login(t *testing.T, env testEnv, email, pwd string) string {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/api/auth/login", marchallObj(t, user.Credentials{Email: email, Password: pwd}))
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	unmarshall(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	return resp.Token
}
