package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pm25-field-data/internal/adapter/memory"
	"github.com/couchcryptid/pm25-field-data/internal/api"
	"github.com/couchcryptid/pm25-field-data/internal/auth"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
	"github.com/couchcryptid/pm25-field-data/internal/pipeline"
	"github.com/couchcryptid/pm25-field-data/internal/refdata"
)

var testAuth = auth.Config{Secret: "test-secret", Issuer: "pm25-test", TTL: time.Hour}

// fixture serves claim-injected requests from the bare mux and anonymous
// requests through the bearer middleware.
type fixture struct {
	svc    *pipeline.Service
	mux    *http.ServeMux
	routes http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := pipeline.New(memory.NewStore(), refdata.NewSource(refdata.Defaults()), logger, observability.NewMetricsForTesting())
	require.NoError(t, svc.Bootstrap(context.Background()))
	h := api.NewHandler(svc, testAuth, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return fixture{svc: svc, mux: mux, routes: h.Routes()}
}

func (f fixture) do(t *testing.T, role domain.Role, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	if role == "" {
		f.routes.ServeHTTP(rec, req)
		return rec
	}
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Subject: string(role) + "-user", Role: role}))
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func observationBody(entry domain.EntryType, elapsed any) map[string]any {
	return map[string]any{
		"entry_type":           entry,
		"site_id":              "1",
		"officers":             []string{"Obed"},
		"driver":               "Kwame",
		"date":                 "2025-03-01",
		"time":                 "08:15",
		"temperature":          29.5,
		"weather":              "Sunny",
		"wind_speed":           "10 km/h",
		"wind_direction":       "NE",
		"elapsed_time_minutes": elapsed,
		"flow_rate_l_per_min":  16.7,
	}
}

func (f fixture) mergedPair(t *testing.T) {
	t.Helper()
	require.Equal(t, http.StatusCreated, f.do(t, domain.RoleCollector, http.MethodPost, "/v1/observations", observationBody(domain.EntryStart, 0)).Code)
	require.Equal(t, http.StatusCreated, f.do(t, domain.RoleCollector, http.MethodPost, "/v1/observations", observationBody(domain.EntryStop, 1500)).Code)
	require.Equal(t, http.StatusOK, f.do(t, domain.RoleEditor, http.MethodPost, "/v1/merge", nil).Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateUser(context.Background(), domain.UserInput{Username: "ama", Name: "Ama", Email: "ama@example.com", Password: "s3cret!", Role: domain.RoleSupervisor})
	require.NoError(t, err)

	rec := f.do(t, "", http.MethodPost, api.LoginPath, api.LoginRequest{Username: "ama", Password: "s3cret!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.LoginResponse](t, rec)
	assert.Equal(t, "ama", resp.User.Username)
	assert.Equal(t, []auth.Capability{auth.CapMerge, auth.CapCalculate, auth.CapReview}, resp.Capabilities)
	assert.NotContains(t, rec.Body.String(), "password")

	claims, err := auth.Parse(resp.Token, testAuth)
	require.NoError(t, err)
	assert.Equal(t, "ama", claims.Subject)

	// The token opens protected routes.
	req := httptest.NewRequest(http.MethodGet, "/v1/reference", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	authed := httptest.NewRecorder()
	f.routes.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)

	t.Run("wrong password", func(t *testing.T) {
		rec := f.do(t, "", http.MethodPost, api.LoginPath, api.LoginRequest{Username: "ama", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := f.do(t, "", http.MethodPost, api.LoginPath, api.LoginRequest{Username: "ama"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodGet, "/v1/observations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestCapabilities(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		role   domain.Role
		method string
		target string
		want   int
	}{
		{domain.RoleViewer, http.MethodPost, "/v1/observations", http.StatusForbidden},
		{domain.RoleViewer, http.MethodGet, "/v1/observations", http.StatusForbidden},
		{domain.RoleSupervisor, http.MethodGet, "/v1/observations", http.StatusOK},
		{domain.RoleCollector, http.MethodPost, "/v1/merge", http.StatusForbidden},
		{domain.RoleCollector, http.MethodGet, "/v1/merged", http.StatusForbidden},
		{domain.RoleViewer, http.MethodGet, "/v1/merged", http.StatusOK},
		{domain.RoleViewer, http.MethodGet, "/v1/calculations/saved", http.StatusOK},
		{domain.RoleEditor, http.MethodGet, "/v1/users", http.StatusForbidden},
		{domain.RoleAdmin, http.MethodGet, "/v1/users", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+" "+tt.method+" "+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, f.do(t, tt.role, tt.method, tt.target, nil).Code)
		})
	}
}

func TestObservations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, domain.RoleCollector, http.MethodPost, "/v1/observations", observationBody(domain.EntryStart, 0))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	obs := decode[domain.Observation](t, rec)
	assert.Equal(t, "Kaneshie First Light", obs.SiteName)
	assert.Equal(t, "collector-user", obs.SubmittedBy)

	t.Run("invalid submission", func(t *testing.T) {
		body := observationBody(domain.EntryStart, "abc")
		body["site_id"] = "99"
		rec := f.do(t, domain.RoleCollector, http.MethodPost, "/v1/observations", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"problems"`)
		assert.Contains(t, rec.Body.String(), "elapsed_time_minutes")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/observations", strings.NewReader("{"))
		req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Subject: "obed", Role: domain.RoleCollector}))
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list with filter", func(t *testing.T) {
		rec := f.do(t, domain.RoleEditor, http.MethodGet, "/v1/observations?site=Kaneshie+First+Light&from=2025-03-01", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[api.ListResponse[domain.Observation]](t, rec)
		assert.Equal(t, 1, list.Count)

		// Observations filter on submission date, frozen at 2025-03-03.
		rec = f.do(t, domain.RoleEditor, http.MethodGet, "/v1/observations?to=2025-03-02", nil)
		assert.Equal(t, 0, decode[api.ListResponse[domain.Observation]](t, rec).Count)

		rec = f.do(t, domain.RoleEditor, http.MethodGet, "/v1/observations?from=March", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("edit", func(t *testing.T) {
		body := observationBody(domain.EntryStart, 0)
		body["weather"] = "Hazy"
		rec := f.do(t, domain.RoleEditor, http.MethodPut, "/v1/observations/2", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Hazy", decode[domain.Observation](t, rec).Weather)

		assert.Equal(t, http.StatusNotFound, f.do(t, domain.RoleEditor, http.MethodPut, "/v1/observations/9", body).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, domain.RoleEditor, http.MethodPut, "/v1/observations/1", body).Code)
	})

	t.Run("delete and restore", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, f.do(t, domain.RoleEditor, http.MethodDelete, "/v1/observations/2", nil).Code)

		rec := f.do(t, domain.RoleSupervisor, http.MethodGet, "/v1/deleted", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[api.ListResponse[domain.DeletedRecord]](t, rec).Count)

		require.Equal(t, http.StatusNoContent, f.do(t, domain.RoleEditor, http.MethodPost, "/v1/deleted/2/restore", nil).Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, domain.RoleEditor, http.MethodPost, "/v1/deleted/2/restore", nil).Code)

		rec = f.do(t, domain.RoleEditor, http.MethodGet, "/v1/observations", nil)
		assert.Equal(t, 1, decode[api.ListResponse[domain.Observation]](t, rec).Count)
	})
}

func TestMerge(t *testing.T) {
	f := newFixture(t)

	t.Run("nothing to merge", func(t *testing.T) {
		rec := f.do(t, domain.RoleEditor, http.MethodPost, "/v1/merge", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[api.MergeResponse](t, rec)
		assert.NotEmpty(t, resp.Notice)
		assert.Empty(t, resp.Records)
	})

	f.mergedPair(t)

	t.Run("filtered", func(t *testing.T) {
		rec := f.do(t, domain.RoleEditor, http.MethodPost, "/v1/merge", api.FilterRequest{Site: "1", From: "2025-03-03", To: "2025-03-03"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[api.MergeResponse](t, rec)
		assert.Empty(t, resp.Notice)
		assert.Equal(t, 1, resp.Summary.Paired)
		require.Len(t, resp.Records, 1)
	})

	t.Run("bad range", func(t *testing.T) {
		rec := f.do(t, domain.RoleEditor, http.MethodPost, "/v1/merge", api.FilterRequest{From: "2025-03-02", To: "2025-03-01"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := f.do(t, domain.RoleViewer, http.MethodGet, "/v1/merged", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.ListResponse[domain.PairedRecord]](t, rec).Count)
}

func TestCalculations(t *testing.T) {
	f := newFixture(t)
	f.mergedPair(t)

	weights := map[string]any{"entries": []map[string]any{
		{"row": 2, "pre_weight_g": "2.1000", "post_weight_g": "2.1050"},
	}}

	t.Run("json", func(t *testing.T) {
		rec := f.do(t, domain.RoleViewer, http.MethodPost, "/v1/calculations", weights)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		list := decode[api.ListResponse[map[string]any]](t, rec)
		require.Equal(t, 1, list.Count)
		assert.InDelta(t, 199.6, list.Items[0]["pm25"], 1e-9)
	})

	t.Run("csv", func(t *testing.T) {
		rec := f.do(t, domain.RoleViewer, http.MethodPost, "/v1/calculations?format=csv", weights)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), pipeline.ExportFilename)
		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "199.6", records[1][len(records[1])-1])
	})

	t.Run("unknown row", func(t *testing.T) {
		body := map[string]any{"entries": []map[string]any{{"row": 7}}}
		assert.Equal(t, http.StatusNotFound, f.do(t, domain.RoleViewer, http.MethodPost, "/v1/calculations", body).Code)
	})

	t.Run("empty entries", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.do(t, domain.RoleViewer, http.MethodPost, "/v1/calculations", map[string]any{}).Code)
	})

	t.Run("save", func(t *testing.T) {
		rec := f.do(t, domain.RoleEditor, http.MethodPost, "/v1/calculations/save", weights)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		saved := decode[api.ListResponse[domain.CalculatedRecord]](t, rec)
		require.Equal(t, 1, saved.Count)
		assert.Equal(t, "editor-user", saved.Items[0].SavedBy)

		rec = f.do(t, domain.RoleSupervisor, http.MethodGet, "/v1/calculations/saved?site=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[api.ListResponse[domain.CalculatedRecord]](t, rec).Count)
	})
}

func TestUsers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, domain.RoleAdmin, http.MethodPost, "/v1/users", domain.UserInput{Username: "kofi", Name: "Kofi", Email: "kofi@example.com", Password: "password", Role: domain.RoleCollector})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, domain.RoleAdmin, http.MethodPost, "/v1/users", domain.UserInput{Username: "kofi", Name: "K", Email: "k2@example.com", Password: "password", Role: domain.RoleViewer})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, domain.RoleAdmin, http.MethodPost, "/v1/users", domain.UserInput{Username: "yaw"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, domain.RoleAdmin, http.MethodPut, "/v1/users/kofi", domain.UserInput{Name: "Kofi B", Email: "kofi@example.com", Role: domain.RoleEditor})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.RoleEditor, decode[domain.User](t, rec).Role)

	rec = f.do(t, domain.RoleAdmin, http.MethodPost, "/v1/users/kofi/password", api.PasswordRequest{Password: "newpass"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := f.svc.Authenticate(context.Background(), "kofi", "newpass")
	require.NoError(t, err)

	rec = f.do(t, domain.RoleAdmin, http.MethodGet, "/v1/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.ListResponse[domain.User]](t, rec).Count)

	assert.Equal(t, http.StatusNoContent, f.do(t, domain.RoleAdmin, http.MethodDelete, "/v1/users/kofi", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, domain.RoleAdmin, http.MethodDelete, "/v1/users/kofi", nil).Code)
}

func TestReferenceAndSites(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, domain.RoleViewer, http.MethodGet, "/v1/reference", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tetteh Quarshie")

	rec = f.do(t, domain.RoleViewer, http.MethodGet, "/v1/sites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, decode[api.ListResponse[domain.SiteLocation]](t, rec).Count)
}
