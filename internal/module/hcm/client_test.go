package hcm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/ms-job-crawler/internal/domain"
)

type fakeHCM struct {
	tokenRequests atomic.Int32
	apiRequests   atomic.Int32
	// tokenTTL returns expires_in for the n-th token request (1-based)
	tokenTTL func(n int32) int
	// api answers listing requests; nil means 404
	api func(w http.ResponseWriter, r *http.Request, n int32)
	// clientID the token endpoint accepts
	clientID string
	// tokenRefused rejects the n-th token request when it returns true
	tokenRefused func(n int32) bool
}

func (f *fakeHCM) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/vagas", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><meta name="client-id" content="` + f.clientID + `"></head><body></body></html>`))
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		n := f.tokenRequests.Add(1)
		if f.tokenRefused != nil && f.tokenRefused(n) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("client_id") != f.clientID || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ttl := 3600
		if f.tokenTTL != nil {
			ttl = f.tokenTTL(n)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-" + string(rune('0'+n)), "expires_in": ttl})
	})
	mux.HandleFunc("/api/vacancies", func(w http.ResponseWriter, r *http.Request) {
		n := f.apiRequests.Add(1)
		if f.api == nil {
			http.NotFound(w, r)
			return
		}
		f.api(w, r, n)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, srv *httptest.Server, fb Fallback) *Client {
	t.Helper()
	company := &domain.Company{ID: 42, Name: "Grupo Exemplo", Sector: "Varejo"}
	c, err := NewClient(srv.URL+"/vagas", company, Config{
		PageSize:   2,
		MaxRetries: 0,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	}, Deps{}, fb, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestClient_ProbesPaginatesAndMaps(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	f.api = func(w http.ResponseWriter, r *http.Request, _ int32) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("page") {
		case "0":
			writeJSON(w, map[string]any{"content": []any{
				map[string]any{"titulo": "Analista de RH", "cidade": "Dourados", "uf": "MS", "id": 11},
				map[string]any{"title": "Vendedor Externo", "location": "São Paulo - SP"},
			}})
		case "1":
			writeJSON(w, map[string]any{"content": []any{
				map[string]any{"jobTitle": "Enfermeiro", "workplace": map[string]any{"city": "Três Lagoas"}, "contractType": "CLT"},
			}})
		default:
			writeJSON(w, map[string]any{"content": []any{}})
		}
	}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	recs, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, "Analista de RH", recs[0].Title)
	assert.Equal(t, "Dourados", recs[0].City)
	assert.Equal(t, 42, recs[0].CompanyID)
	assert.Equal(t, "Grupo Exemplo", recs[0].Company)
	assert.Equal(t, srv.URL+"/vagas/11", recs[0].Link)
	assert.Equal(t, "Três Lagoas", recs[1].City)
	assert.Equal(t, domain.ContractStandard, recs[1].ContractType)
	assert.True(t, recs[1].RegionVerified)

	assert.Equal(t, int32(1), f.tokenRequests.Load())
	assert.Equal(t, int32(2), f.apiRequests.Load())
	assert.Equal(t, Authenticated, c.State())
	require.NotNil(t, c.endpoint)
	assert.Equal(t, DefaultEndpoints[1].Pattern, c.endpoint.Pattern)
}

func TestClient_ExpiredTokenReauthenticatesOnce(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	f.tokenTTL = func(n int32) int {
		if n == 1 {
			return 30 // inside the safety margin
		}
		return 3600
	}
	f.api = func(w http.ResponseWriter, r *http.Request, _ int32) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, []any{map[string]any{"name": "Auxiliar de Produção", "city": "Naviraí"}})
	}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Naviraí", recs[0].City)
	assert.Equal(t, int32(2), f.tokenRequests.Load())
}

func TestClient_AlwaysExpiredTokenFails(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123", tokenTTL: func(int32) int { return 10 }}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	err := c.ensureAuthenticated(context.Background())
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, int32(2), f.tokenRequests.Load())
	assert.Equal(t, Expired, c.State())
}

func TestClient_401TriggersSingleReauth(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	f.api = func(w http.ResponseWriter, r *http.Request, n int32) {
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"vacancies": []any{
			map[string]any{"position": "Motorista Entregador", "location": "Corumbá/MS"},
		}}})
	}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Corumbá", recs[0].City)
	assert.Equal(t, int32(2), f.tokenRequests.Load())
}

func TestClient_FailedReauthGoesStraightToFallback(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	f.tokenRefused = func(n int32) bool { return n > 1 }
	f.api = func(w http.ResponseWriter, r *http.Request, _ int32) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	calls := 0
	c := newTestClient(t, srv, func(ctx context.Context) ([]domain.JobRecord, error) {
		calls++
		return []domain.JobRecord{{Title: "Analista", City: "Dourados", RegionVerified: true}}, nil
	})
	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(2), f.tokenRequests.Load())
	assert.Equal(t, int32(1), f.apiRequests.Load())
}

func TestClient_StopsWhenPageSizeIgnored(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	f.api = func(w http.ResponseWriter, r *http.Request, _ int32) {
		writeJSON(w, map[string]any{"content": []any{
			map[string]any{"title": "Analista Fiscal", "city": "Dourados"},
			map[string]any{"title": "Auxiliar de Estoque", "city": "Dourados"},
			map[string]any{"title": "Operador de Caixa", "city": "Dourados"},
		}})
	}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, int32(1), f.apiRequests.Load())
}

func TestClient_FallbackRunsOncePerRun(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	calls := 0
	fb := func(ctx context.Context) ([]domain.JobRecord, error) {
		calls++
		return []domain.JobRecord{{Title: "Analista", City: "Dourados", RegionVerified: true}}, nil
	}
	c := newTestClient(t, srv, fb)

	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, calls)

	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoEndpoint)
	assert.Equal(t, 1, calls)
}

func TestClient_AuthFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	calls := 0
	c := newTestClient(t, srv, func(ctx context.Context) ([]domain.JobRecord, error) {
		calls++
		return nil, errors.New("browser unavailable")
	})
	_, err := c.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_StopsAfterConsecutiveEmptyPages(t *testing.T) {
	f := &fakeHCM{clientID: "portal-ms-123"}
	f.api = func(w http.ResponseWriter, r *http.Request, _ int32) {
		writeJSON(w, map[string]any{"result": []any{
			map[string]any{"salary": "R$ 2.000"},
			map[string]any{"benefits": []any{"VR"}},
		}})
	}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	recs, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(3), f.apiRequests.Load())
}

func TestClientIDFromMarkup(t *testing.T) {
	tests := []struct {
		name, markup, want string
	}{
		{"meta", `<meta name="client-id" content="abc-123">`, "abc-123"},
		{"data attribute", `<div id="app" data-client-id="portal_ms"></div>`, "portal_ms"},
		{"script assignment", `<script>window.config = { clientId: "spa-client-77" };</script>`, "spa-client-77"},
		{"query string", `<a href="/login?client_id=legacy01&x=1">x</a>`, "legacy01"},
		{"none", `<html><body>Trabalhe conosco</body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIDFromMarkup(tt.markup))
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		count int
		ok    bool
	}{
		{"content", `{"content":[{"title":"a"},{"title":"b"}],"totalElements":2}`, 2, true},
		{"nested data", `{"data":{"items":[{"title":"a"}]}}`, 1, true},
		{"vacancies", `{"vacancies":[]}`, 0, true},
		{"bare list", `[{"name":"a"}]`, 1, true},
		{"bare object", `{"jobTitle":"a","city":"Dourados"}`, 1, true},
		{"unknown", `{"status":"ok"}`, 0, false},
		{"not json", `<html></html>`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := decodeEnvelope([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Len(t, items, tt.count)
		})
	}
}
