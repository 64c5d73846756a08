package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandler struct {
	method string
	err    error
}

func (h *testHandler) Handle(_ context.Context, principalID, sessionID, method string, params json.RawMessage) (any, error) {
	h.method = method
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"principal": principalID, "session": sessionID}, nil
}

type gateErr struct{}

func (e *gateErr) Error() string { return "proposal not found" }

func (e *gateErr) ErrorPayload() any {
	return map[string]string{"code": "PROPOSAL_NOT_FOUND", "recovery_hint": "Run propose_tool_design first"}
}

type staticResolver struct {
	principal string
}

func (r *staticResolver) ResolvePrincipal(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	return r.principal, nil
}

func TestHTTPServer_MCP(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{principal: "principal1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Mcp-Session-Id", "sess1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "tools/list", handler.method)

	var rpcResp Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.Nil(t, rpcResp.Error)
	result, ok := rpcResp.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "principal1", result["principal"])
	require.Equal(t, "sess1", result["session"])
}

func TestHTTPServer_MCP_MissingToken(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{principal: "principal1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	resp, err := http.Post(server.URL+"/mcp", "application/json", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPServer_MintsSessionID(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{principal: "principal1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	minted := resp.Header.Get("Mcp-Session-Id")
	require.NotEmpty(t, minted)

	var rpcResp Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	result, ok := rpcResp.Result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, minted, result["session"])
}

func TestHTTPServer_NotificationGetsAccepted(t *testing.T) {
	handler := &testHandler{}
	resolver := &staticResolver{principal: "principal1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "notifications/initialized", handler.method)
}

func TestHTTPServer_ErrorPayload(t *testing.T) {
	handler := &testHandler{err: &gateErr{}}
	resolver := &staticResolver{principal: "principal1"}
	server := httptest.NewServer(NewServer(handler, AuthMiddleware(resolver)))
	t.Cleanup(server.Close)

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"tools/call","id":1}`)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/mcp", body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpcResp Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
	require.Equal(t, ErrInternal, rpcResp.Error.Code)
	data, ok := rpcResp.Error.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "PROPOSAL_NOT_FOUND", data["code"])
}

func TestHTTPServer_Health(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(handler, nil))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
