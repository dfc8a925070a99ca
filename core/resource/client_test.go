package resource_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansourkira/evoluflow/core/catalog"
	"github.com/mansourkira/evoluflow/core/resource"
	testutil "github.com/mansourkira/evoluflow/tests"
)

const token = "backend-token"

var salles = resource.Resource{Name: "salles", Label: "Salle", Prefix: "SAL", Sequential: true}

func newSalleClient(t *testing.T) (*resource.Client[catalog.Salle], *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t, token)
	tr := resource.NewTransport(backend.BaseURL(), &http.Client{Timeout: 5 * time.Second}, resource.StaticToken(token))
	return resource.NewClient[catalog.Salle](salles, tr), backend
}

func salle(ref, libelle, site string, max int) catalog.Salle {
	return catalog.Salle{
		Base:              catalog.Base{Reference: ref, Libelle: libelle},
		ReferenceSite:     site,
		NombreCandidatMax: max,
	}
}

func countRef(items []catalog.Salle, ref string) int {
	var n int
	for _, it := range items {
		if it.Reference == ref {
			n++
		}
	}
	return n
}

func TestClient_AddSalle(t *testing.T) {
	client, backend := newSalleClient(t)
	ctx := context.Background()

	ok := client.Add(ctx, salle("SALLE001", "Amphi A", "S1", 120))
	require.True(t, ok, client.Err())
	assert.Empty(t, client.Err())
	assert.False(t, client.Loading())

	items := client.Items()
	require.Equal(t, 1, countRef(items, "SALLE001"))
	assert.Equal(t, 120, items[0].NombreCandidatMax)
	assert.Equal(t, "S1", items[0].ReferenceSite)
	assert.Equal(t, testutil.BackendUser, items[0].Utilisateur) // server-owned fields come from the refreshed list
	assert.NotNil(t, items[0].Heure)

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/salles/add", reqs[0].Path)
	assert.Equal(t, token, reqs[0].Token)
	assert.Equal(t, "/api/salles/list", reqs[1].Path)
}

func TestClient_ServerRejects(t *testing.T) {
	client, backend := newSalleClient(t)
	ctx := context.Background()
	backend.Seed(t, "salles", salle("SAL2401001", "Salle 1", "S1", 30))
	client.FetchAll(ctx)
	before := client.Items()

	tests := []struct {
		name    string
		call    func() bool
		fail    func()
		wantErr string
	}{
		{
			name:    "duplicate reference",
			call:    func() bool { return client.Add(ctx, salle("SAL2401001", "Autre", "S1", 10)) },
			wantErr: testutil.MsgDuplicate,
		},
		{
			name:    "update unknown",
			call:    func() bool { return client.Update(ctx, salle("NOPE", "x", "S1", 1)) },
			wantErr: testutil.MsgNotFound,
		},
		{
			name:    "delete unknown",
			call:    func() bool { return client.Delete(ctx, "NOPE") },
			wantErr: testutil.MsgNotFound,
		},
		{
			name:    "status without error field",
			fail:    func() { backend.FailNext(http.StatusInternalServerError, `{}`) },
			call:    func() bool { return client.Delete(ctx, "SAL2401001") },
			wantErr: resource.MsgDeleteFailed,
		},
		{
			name:    "status with a non JSON body",
			fail:    func() { backend.FailNext(http.StatusBadGateway, `oops`) },
			call:    func() bool { return client.Add(ctx, salle("SAL2401002", "x", "S1", 1)) },
			wantErr: resource.MsgAddFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fail != nil {
				tt.fail()
			}
			assert.False(t, tt.call())
			assert.Equal(t, tt.wantErr, client.Err())
			assert.False(t, client.Loading())
			assert.Equal(t, before, client.Items()) // never mutated optimistically
		})
	}
}

func TestClient_FetchAll(t *testing.T) {
	client, backend := newSalleClient(t)
	ctx := context.Background()
	backend.Seed(t, "salles", salle("SAL2401001", "Salle 1", "S1", 30), salle("SAL2401002", "Salle 2", "S2", 40))

	client.FetchAll(ctx)
	first := client.Items()
	client.FetchAll(ctx)
	assert.Equal(t, first, client.Items())
	require.Len(t, first, 2)
	assert.Equal(t, []string{"SAL2401001", "SAL2401002"}, client.References())

	// a failed refresh keeps the last list
	backend.FailNext(http.StatusServiceUnavailable, `{"error":"Service indisponible"}`)
	client.FetchAll(ctx)
	assert.Equal(t, "Service indisponible", client.Err())
	assert.Equal(t, first, client.Items())
	assert.False(t, client.Loading())

	// a successful one clears the error
	client.FetchAll(ctx)
	assert.Empty(t, client.Err())

	// malformed list body
	backend.FailNext(http.StatusOK, `{"not":"a list"}`)
	client.FetchAll(ctx)
	assert.Equal(t, resource.MsgFetchFailed, client.Err())
	assert.Equal(t, first, client.Items())
}

func TestClient_FetchAllEmpty(t *testing.T) {
	client, _ := newSalleClient(t)
	client.FetchAll(context.Background())
	assert.NotNil(t, client.Items())
	assert.Empty(t, client.Items())
	assert.Empty(t, client.Err())
}

func TestClient_UpdateKeepsReference(t *testing.T) {
	client, backend := newSalleClient(t)
	ctx := context.Background()
	backend.Seed(t, "salles", salle("SAL2401001", "Salle 1", "S1", 30))

	require.True(t, client.Update(ctx, salle("SAL2401001", "Salle renommée", "S1", 45)))
	items := client.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "SAL2401001", items[0].Reference)
	assert.Equal(t, "Salle renommée", items[0].Libelle)
	assert.Equal(t, 45, items[0].NombreCandidatMax)

	reqs := backend.Requests()
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Contains(t, reqs[0].Body, `"Nombre_Candidat_Max":45`)
	assert.Contains(t, reqs[0].Body, `"Reference_Site":"S1"`) // full record
}

func TestClient_Delete(t *testing.T) {
	client, backend := newSalleClient(t)
	ctx := context.Background()
	backend.Seed(t, "salles", salle("SAL2401001", "Salle 1", "S1", 30), salle("SAL2401002", "Salle 2", "S2", 40))

	require.True(t, client.Delete(ctx, "SAL2401001"))
	assert.Equal(t, 0, countRef(client.Items(), "SAL2401001"))
	assert.Equal(t, 1, countRef(client.Items(), "SAL2401002"))

	reqs := backend.Requests()
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
	assert.JSONEq(t, `{"Reference":"SAL2401001"}`, reqs[0].Body)
}

func TestClient_GetByReference(t *testing.T) {
	client, backend := newSalleClient(t)
	ctx := context.Background()
	backend.Seed(t, "salles", salle("SAL2401001", "Salle 1", "S1", 30))

	rec := client.GetByReference(ctx, "SAL2401001")
	require.NotNil(t, rec)
	assert.Equal(t, 30, rec.NombreCandidatMax)
	assert.Empty(t, client.Items()) // cache untouched

	assert.Nil(t, client.GetByReference(ctx, "ABSENT"))

	backend.FailNext(http.StatusOK, `not json`)
	assert.Nil(t, client.GetByReference(ctx, "SAL2401001"))

	backend.FailNext(http.StatusOK, `{}`)
	assert.Nil(t, client.GetByReference(ctx, "SAL2401001"))
}

func TestClient_TransportFailure(t *testing.T) {
	client, backend := newSalleClient(t)
	backend.Close()
	ctx := context.Background()

	client.FetchAll(ctx)
	assert.Equal(t, resource.MsgTransportFailure, client.Err())
	assert.False(t, client.Add(ctx, salle("SAL2401001", "x", "S1", 1)))
	assert.Equal(t, resource.MsgTransportFailure, client.Err())
	assert.Nil(t, client.GetByReference(ctx, "SAL2401001"))
	assert.False(t, client.Loading())
}

func TestClient_Unauthorized(t *testing.T) {
	backend := testutil.NewBackend(t, token)
	tr := resource.NewTransport(backend.BaseURL(), nil, resource.StaticToken("wrong"))
	client := resource.NewClient[catalog.Salle](salles, tr)

	client.FetchAll(context.Background())
	assert.Equal(t, testutil.MsgInvalidToken, client.Err())
}

// unencodable crashes the JSON encoder so the request never leaves the client.
type unencodable struct {
	Reference string `json:"Reference"`
}

func (u unencodable) GetReference() string { return u.Reference }

func (u unencodable) MarshalJSON() ([]byte, error) { panic("encoder crash") }

func TestClient_LoadingClearedOnPanic(t *testing.T) {
	backend := testutil.NewBackend(t, token)
	tr := resource.NewTransport(backend.BaseURL(), nil, resource.StaticToken(token))
	client := resource.NewClient[unencodable](salles, tr)
	ctx := context.Background()

	tests := []struct {
		name string
		call func()
	}{
		{name: "add", call: func() { client.Add(ctx, unencodable{Reference: "SAL2401001"}) }},
		{name: "update", call: func() { client.Update(ctx, unencodable{Reference: "SAL2401001"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, tt.call)
			assert.False(t, client.Loading())
		})
	}
	assert.Empty(t, backend.Requests())
}
