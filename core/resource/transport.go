package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const (
	MsgTransportFailure = "Erreur de connexion au serveur"
	MsgMissingToken     = "Token d'autorisation manquant"

	HeaderRequestID = "X-Request-ID"
)

var (
	// ErrTransport wraps every failure to obtain a response (connection refused, DNS, timeout...).
	ErrTransport = errors.New("transport failure")
	// ErrMalformedBody is returned when a success body cannot be decoded.
	ErrMalformedBody = errors.New("malformed response body")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string // the body's `error` field; empty if absent
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

// ErrorBody is the failure shape shared by the backend and the proxy.
type ErrorBody struct {
	Error string `json:"error"`
}

// TokenSource hands out the bearer token of the current session.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type requestIDKey struct{}

// WithRequestID attaches a request id forwarded as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Transport performs the JSON calls of the backend REST contract.
type Transport struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
}

func NewTransport(baseURL string, client *http.Client, tokens TokenSource) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    client,
		Tokens:  tokens,
	}
}

// Do sends body to BaseURL+path and returns the raw status and body.
// An empty token leaves the Authorization header out.
func (t *Transport) Do(ctx context.Context, method, path, token string, body []byte) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, rdr)
	if err != nil {
		return 0, nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		req.Header.Set(HeaderRequestID, id)
	}

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(ErrTransport, "%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrapf(ErrTransport, "reading %s %s: %v", method, path, err)
	}
	return resp.StatusCode, data, nil
}

// JSON sends in (if not nil) with the session token and decodes a 2xx body into out (if not nil).
// Non-2xx answers become a *StatusError carrying the body's `error` field.
func (t *Transport) JSON(ctx context.Context, method, path string, in, out interface{}) error {
	var token string
	if t.Tokens != nil {
		token = t.Tokens.Token()
	}
	return t.JSONWithToken(ctx, method, path, token, in, out)
}

// JSONWithToken is JSON with an explicit bearer token.
func (t *Transport) JSONWithToken(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}

	code, data, err := t.Do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		var eb ErrorBody
		_ = json.Unmarshal(data, &eb)
		return &StatusError{Code: code, Message: eb.Error}
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(ErrMalformedBody, "%s %s: %v", method, path, err)
	}
	return nil
}

// Message reduces err to the single string shown to the user; fallback covers status errors without an `error` field.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrTransport) {
		return MsgTransportFailure
	}
	var serr *StatusError
	if errors.As(err, &serr) && serr.Message != "" {
		return serr.Message
	}
	return fallback
}
