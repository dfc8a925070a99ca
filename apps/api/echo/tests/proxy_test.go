package tests

import (
	"net/http"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/catalog"
	"github.com/mansourkira/evoluflow/core/resource"
	testutil "github.com/mansourkira/evoluflow/tests"
)

func salle(ref, libelle string, max int) catalog.Salle {
	return catalog.Salle{Base: catalog.Base{Reference: ref, Libelle: libelle}, ReferenceSite: "SIT2401001", NombreCandidatMax: max}
}

func Test_proxyAPI(t *testing.T) {
	env := setup(t, core.AuthModeMock)
	env.backend.Seed(t, "salles", salle("SAL2410001", "Amphi A", 120))

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/api/salles/list",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: resource.MsgMissingToken}),
		},
		{
			name: "Unknown resource", method: http.MethodGet, path: "/api/candidats/list", token: backendToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Ressource inconnue"}),
		},
		{
			name: "Unknown operation", method: http.MethodPost, path: "/api/salles/purge", token: backendToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Ressource inconnue"}),
		},
		{
			name: "List", method: http.MethodGet, path: "/api/salles/list", token: backendToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, env.backend.Records("salles")),
		},
		{
			name: "List (trailing slash)", method: http.MethodGet, path: "/api/salles/list/", token: backendToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, env.backend.Records("salles")),
		},
		{
			name: "Empty list", method: http.MethodGet, path: "/api/banques/list", token: backendToken,
			wantCode: http.StatusOK, wantData: []byte(`[]`),
		},
		{
			name: "Add (duplicate)", method: http.MethodPost, path: "/api/salles/add", token: backendToken,
			body:     marchallObj(t, salle("SAL2410001", "Amphi B", 80)),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: testutil.MsgDuplicate}),
		},
		{
			name: "Add", method: http.MethodPost, path: "/api/salles/add", token: backendToken,
			body: marchallObj(t, salle("SALLE001", "Amphi C", 120)), wantCode: http.StatusCreated,
		},
		{
			name: "Update (unknown)", method: http.MethodPut, path: "/api/salles/update", token: backendToken,
			body:     marchallObj(t, salle("SAL0000000", "x", 1)),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: testutil.MsgNotFound}),
		},
		{
			name: "Update", method: http.MethodPut, path: "/api/salles/update", token: backendToken,
			body: marchallObj(t, salle("SAL2410001", "Amphi A", 150)), wantCode: http.StatusOK,
		},
		{
			name: "Get", method: http.MethodPost, path: "/api/salles/get", token: backendToken,
			body: marchallObj(t, resource.ReferenceBody{Reference: "SALLE001"}), wantCode: http.StatusOK,
		},
		{
			name: "Delete", method: http.MethodDelete, path: "/api/salles/delete", token: backendToken,
			body:     marchallObj(t, resource.ReferenceBody{Reference: "SALLE001"}),
			wantCode: http.StatusOK, wantData: []byte(`{"success":true}`),
		},
		{
			name: "Stale token", method: http.MethodGet, path: "/api/salles/list", token: "stale",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: testutil.MsgInvalidToken}),
		},
	}
	runHTTPTests(t, env, tests)

	recs := env.backend.Records("salles")
	require.Len(t, recs, 1)
	assert.Equal(t, 150.0, recs[0]["Nombre_Candidat_Max"])

	// the unauthenticated and unknown calls never reached the backend
	reqs := env.backend.Requests()
	assert.Len(t, reqs, len(tests)-3)
	for _, r := range reqs {
		assert.True(t, strings.HasPrefix(r.Path, "/api/salles/") || strings.HasPrefix(r.Path, "/api/banques/"), r.Path)
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(env.metrics.ProxyRequests.WithLabelValues("salles", "list", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(env.metrics.ProxyRequests.WithLabelValues("salles", "add", "409")))
	assert.Equal(t, 1.0, promtest.ToFloat64(env.metrics.ProxyRequests.WithLabelValues("salles", "list", "401")))
}

func Test_proxyAPI_forwardsHeaders(t *testing.T) {
	env := setup(t, core.AuthModeMock)

	req, rec := newAuthRequest(http.MethodGet, "/api/sites/list", backendToken)
	req.Header.Set("X-Request-ID", "req-42")
	assert.Equal(t, http.StatusOK, env.serve(req, rec).Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	req, rec = newAuthRequest(http.MethodGet, "/api/sites/list", backendToken)
	env.serve(req, rec)
	generated := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)

	reqs := env.backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, backendToken, reqs[0].Token)
	assert.Equal(t, "req-42", reqs[0].RequestID)
	assert.Equal(t, generated, reqs[1].RequestID)
}

func Test_proxyAPI_backendFailures(t *testing.T) {
	env := setup(t, core.AuthModeMock)

	t.Run("Error status relayed verbatim", func(t *testing.T) {
		env.backend.FailNext(http.StatusServiceUnavailable, `{"error":"Maintenance en cours","retry":30}`)
		req, rec := newAuthRequest(http.MethodGet, "/api/filieres/list", backendToken)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusServiceUnavailable,
			wantData: []byte(`{"error":"Maintenance en cours","retry":30}`),
		}, env.serve(req, rec))
	})

	t.Run("Backend unreachable", func(t *testing.T) {
		env.backend.Close()
		req, rec := newAuthRequest(http.MethodGet, "/api/filieres/list", backendToken)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: resource.MsgTransportFailure}),
		}, env.serve(req, rec))
		assert.Equal(t, 1.0, promtest.ToFloat64(env.metrics.ProxyFailures.WithLabelValues("filieres")))
	})
}

func Test_server(t *testing.T) {
	env := setup(t, core.AuthModeMock)

	req, rec := newRequest(http.MethodGet, "/health")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"status":"ok"}`)}, env.serve(req, rec))

	login(t, env, "admin@admission.com", "admin123")
	req, rec = newRequest(http.MethodGet, "/metrics")
	env.serve(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_login_attempts_total{status="success"} 1`)
}
