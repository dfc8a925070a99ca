package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mansourkira/evoluflow/core/user"
)

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string) user.User {
	t.Helper()
	usr := user.User{
		Name:  name,
		Email: email,
		Role:  role,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Backend messages
const (
	MsgInvalidToken   = "Token invalide"
	MsgDuplicate      = "Cette référence existe déjà"
	MsgNotFound       = "Enregistrement introuvable"
	MsgBadCredentials = "Identifiants invalides"
	BackendUser       = "admin.backend"
)

// Request is a call received by the Backend.
type Request struct {
	Method    string
	Path      string
	Token     string
	RequestID string
	Body      string
}

type (
	record  = map[string]interface{}
	failure struct {
		code int
		body string
	}
	backendUser struct {
		user.RemoteUser
		password string
	}
)

// Backend is a fake of the REST backend: every collection answers list/add/update/delete/get,
// records are keyed by Reference, and /auth serves the users added with AddUser.
type Backend struct {
	*httptest.Server
	Token string // the only accepted bearer token

	mu       sync.Mutex
	records  map[string][]record
	users    []backendUser
	requests []Request
	fail     *failure
}

func NewBackend(t *testing.T, token string) *Backend {
	t.Helper()
	b := &Backend{Token: token, records: make(map[string][]record)}

	app := echo.New()
	app.HideBanner = true
	app.GET("/api/auth/me", b.me)
	app.POST("/api/auth/login", b.login)
	app.POST("/api/auth/logout", b.logout)
	app.GET("/api/:resource/list", b.list)
	app.POST("/api/:resource/add", b.add)
	app.PUT("/api/:resource/update", b.update)
	app.DELETE("/api/:resource/delete", b.remove)
	app.POST("/api/:resource/get", b.get)
	app.Pre(b.record, b.failing)

	b.Server = httptest.NewServer(app)
	t.Cleanup(b.Close)
	return b
}

// BaseURL is the API root, as configured in backend.baseURL.
func (b *Backend) BaseURL() string {
	return b.URL + "/api"
}

// Seed stores recs in resource, in order.
func (b *Backend) Seed(t *testing.T, resource string, recs ...interface{}) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Seed() failed: %v", err)
		}
		var rec record
		if err = json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("Seed() failed: %v", err)
		}
		b.records[resource] = append(b.records[resource], rec)
	}
}

// Records returns a copy of the stored records of resource.
func (b *Backend) Records(resource string) []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	recs := make([]map[string]interface{}, len(b.records[resource]))
	copy(recs, b.records[resource])
	return recs
}

func (b *Backend) AddUser(ru user.RemoteUser, password string) {
	b.mu.Lock()
	b.users = append(b.users, backendUser{RemoteUser: ru, password: password})
	b.mu.Unlock()
}

// FailNext makes the next call answer code with body, whatever the route.
func (b *Backend) FailNext(code int, body string) {
	b.mu.Lock()
	b.fail = &failure{code: code, body: body}
	b.mu.Unlock()
}

// Requests returns the calls received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs := make([]Request, len(b.requests))
	copy(reqs, b.requests)
	return reqs
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		var body []byte
		if req.Body != nil {
			var err error
			if body, err = io.ReadAll(req.Body); err != nil {
				return err
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:    req.Method,
			Path:      req.URL.Path,
			Token:     strings.TrimPrefix(req.Header.Get(echo.HeaderAuthorization), "Bearer "),
			RequestID: req.Header.Get(echo.HeaderXRequestID),
			Body:      string(body),
		})
		b.mu.Unlock()
		return next(ctx)
	}
}

func (b *Backend) failing(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		f := b.fail
		b.fail = nil
		b.mu.Unlock()
		if f != nil {
			return ctx.Blob(f.code, echo.MIMEApplicationJSON, []byte(f.body))
		}
		return next(ctx)
	}
}

func fail(ctx echo.Context, code int, msg string) error {
	return ctx.JSON(code, echo.Map{"error": msg})
}

func (b *Backend) authorized(ctx echo.Context) bool {
	return ctx.Request().Header.Get(echo.HeaderAuthorization) == "Bearer "+b.Token
}

func (b *Backend) login(ctx echo.Context) error {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.Bind(&creds); err != nil {
		return fail(ctx, http.StatusBadRequest, MsgBadCredentials)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.EMail == creds.Email && u.password == creds.Password {
			return ctx.JSON(http.StatusOK, echo.Map{"user": u.RemoteUser, "token": b.Token})
		}
	}
	return fail(ctx, http.StatusUnauthorized, MsgBadCredentials)
}

func (b *Backend) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (b *Backend) me(ctx echo.Context) error {
	if !b.authorized(ctx) {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.users) == 0 {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"user": b.users[0].RemoteUser})
}

func (b *Backend) list(ctx echo.Context) error {
	if !b.authorized(ctx) {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	recs := b.records[ctx.Param("resource")]
	if recs == nil {
		recs = []record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

const msgBadBody = "Corps invalide"

func bind(ctx echo.Context) (record, string, bool) {
	var rec record
	if err := json.NewDecoder(ctx.Request().Body).Decode(&rec); err != nil || rec == nil {
		return nil, "", false
	}
	ref, _ := rec["Reference"].(string)
	return rec, ref, true
}

func (b *Backend) index(resource, ref string) int {
	for i, r := range b.records[resource] {
		if r["Reference"] == ref {
			return i
		}
	}
	return -1
}

func stamp(rec record) {
	rec["Utilisateur"] = BackendUser
	rec["Heure"] = time.Now().UTC().Format(time.RFC3339)
}

func (b *Backend) add(ctx echo.Context) error {
	if !b.authorized(ctx) {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	rec, ref, ok := bind(ctx)
	if !ok {
		return fail(ctx, http.StatusBadRequest, msgBadBody)
	}
	res := ctx.Param("resource")
	b.mu.Lock()
	defer b.mu.Unlock()
	if ref == "" {
		return fail(ctx, http.StatusBadRequest, "Référence requise")
	}
	if b.index(res, ref) >= 0 {
		return fail(ctx, http.StatusConflict, MsgDuplicate)
	}
	stamp(rec)
	b.records[res] = append(b.records[res], rec)
	return ctx.JSON(http.StatusCreated, rec)
}

func (b *Backend) update(ctx echo.Context) error {
	if !b.authorized(ctx) {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	rec, ref, ok := bind(ctx)
	if !ok {
		return fail(ctx, http.StatusBadRequest, msgBadBody)
	}
	res := ctx.Param("resource")
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(res, ref)
	if i < 0 {
		return fail(ctx, http.StatusNotFound, MsgNotFound)
	}
	stamp(rec)
	b.records[res][i] = rec
	return ctx.JSON(http.StatusOK, rec)
}

func (b *Backend) remove(ctx echo.Context) error {
	if !b.authorized(ctx) {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	_, ref, ok := bind(ctx)
	if !ok {
		return fail(ctx, http.StatusBadRequest, msgBadBody)
	}
	res := ctx.Param("resource")
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(res, ref)
	if i < 0 {
		return fail(ctx, http.StatusNotFound, MsgNotFound)
	}
	b.records[res] = append(b.records[res][:i], b.records[res][i+1:]...)
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (b *Backend) get(ctx echo.Context) error {
	if !b.authorized(ctx) {
		return fail(ctx, http.StatusUnauthorized, MsgInvalidToken)
	}
	_, ref, ok := bind(ctx)
	if !ok {
		return fail(ctx, http.StatusBadRequest, msgBadBody)
	}
	res := ctx.Param("resource")
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(res, ref)
	if i < 0 {
		return fail(ctx, http.StatusNotFound, MsgNotFound)
	}
	return ctx.JSON(http.StatusOK, b.records[res][i])
}
