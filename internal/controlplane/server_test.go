package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "secret-key"

var errFake = errors.New("simulated restart failure")

type fakeHost struct {
	mu        sync.Mutex
	self      string
	resources []string
	restarted []string
	failFor   map[string]error
}

func (h *fakeHost) SelfName() string { return h.self }

func (h *fakeHost) ListResources(context.Context) ([]string, error) {
	return h.resources, nil
}

func (h *fakeHost) RestartResource(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.failFor[name]; ok {
		return err
	}
	h.restarted = append(h.restarted, name)
	return nil
}

func (h *fakeHost) restartedNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.restarted...)
}

func newTestService(t *testing.T, host Host) *httptest.Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", testKey, host, slog.Default())
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, nil)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_Liveness(t *testing.T) {
	ts := newTestService(t, &fakeHost{self: "hotbuild"})

	resp := doRequest(t, http.MethodGet, ts.URL+"/", testKey)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hotbuild agent running", string(body))
}

func TestServer_ListResources(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha", "beta"}}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodGet, ts.URL+"/resources", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[ListResponse](t, resp)
	require.True(t, body.Success)
	require.Equal(t, []string{"alpha", "beta"}, body.Resources)
	require.Equal(t, 2, body.Count)
}

func TestServer_RejectsMissingToken(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha"}}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart?resource=alpha", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	require.False(t, body.Success)
	require.Equal(t, "Unauthorized: Invalid API key", body.Error)
	require.Empty(t, host.restartedNames())
}

func TestServer_RejectsWrongToken(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha"}}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart?resource=alpha", "not-the-key")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, host.restartedNames())
}

func TestServer_EmptyConfiguredKeyNeverMatches(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha"}}
	s := NewServer("127.0.0.1:0", "", host, slog.Default())
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart?resource=alpha", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, host.restartedNames())
}

func TestServer_RestartNamedResource(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha", "beta"}}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart?resource=beta", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[RestartResponse](t, resp)
	require.True(t, body.Success)
	require.Equal(t, "beta", body.Resource)
	require.Equal(t, []string{"beta"}, host.restartedNames())
}

func TestServer_RestartUnknownResource(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha"}}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart?resource=ghost", testKey)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	require.Equal(t, "Resource not found", body.Error)
	require.Empty(t, host.restartedNames())
}

func TestServer_RestartAllSkipsSelf(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha", "beta", "hotbuild"}}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[RestartAllResponse](t, resp)
	require.True(t, body.Success)
	require.Equal(t, map[string]bool{"alpha": true, "beta": true, "hotbuild": true}, body.Results)

	restarted := host.restartedNames()
	require.ElementsMatch(t, []string{"alpha", "beta"}, restarted)
	require.NotContains(t, restarted, "hotbuild")
}

func TestServer_RestartAllReportsFailures(t *testing.T) {
	host := &fakeHost{
		self:      "hotbuild",
		resources: []string{"alpha", "beta"},
		failFor:   map[string]error{"beta": errFake},
	}
	ts := newTestService(t, host)

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart", testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[RestartAllResponse](t, resp)
	require.False(t, body.Success)
	require.Equal(t, map[string]bool{"alpha": true, "beta": false}, body.Results)
}

func TestServer_UnknownPath(t *testing.T) {
	ts := newTestService(t, &fakeHost{self: "hotbuild"})

	resp := doRequest(t, http.MethodGet, ts.URL+"/nope", testKey)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	require.Equal(t, "Endpoint not found", body.Error)
}

func TestServer_MethodChecks(t *testing.T) {
	ts := newTestService(t, &fakeHost{self: "hotbuild"})

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/resources"},
		{http.MethodGet, "/restart"},
		{http.MethodDelete, "/"},
	} {
		resp := doRequest(t, tc.method, ts.URL+tc.path, testKey)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode,
			"%s %s", tc.method, tc.path)
	}
}

func TestServer_PreflightBypassesAuth(t *testing.T) {
	ts := newTestService(t, &fakeHost{self: "hotbuild"})

	resp := doRequest(t, http.MethodOptions, ts.URL+"/restart", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSHeadersOnEveryResponse(t *testing.T) {
	ts := newTestService(t, &fakeHost{self: "hotbuild"})

	resp := doRequest(t, http.MethodPost, ts.URL+"/restart", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_StartStop(t *testing.T) {
	host := &fakeHost{self: "hotbuild", resources: []string{"alpha"}}
	s := NewServer("127.0.0.1:0", testKey, host, slog.Default())

	require.NoError(t, s.Start(t.Context()))
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	resp := doRequest(t, http.MethodGet, "http://"+s.Addr()+"/", testKey)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
