package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/integrations/paramstore"
)

type countingTokens struct {
	token string
	err   error
	calls int32
}

func (c *countingTokens) Token(context.Context) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.token, c.err
}

type generateBody struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func newGeminiServer(t *testing.T, status int, reply string, seen *generateBody) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		if seen != nil {
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server, tokens paramstore.TokenSource) *Client {
	t.Helper()
	c, err := NewClient(tokens, "gemini-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	_, err := NewClient(nil, "")
	require.ErrorContains(t, err, "nil")

	c, err := NewClient(paramstore.StaticToken("k"), " ")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.Model())
}

func TestContents_MapsRoles(t *testing.T) {
	got := contents(domain.CompletionRequest{
		Message: "and rents?",
		History: []domain.Message{
			{Role: domain.RoleModel, Text: "Welcome"},
			{Role: domain.RoleUser, Text: "prices?"},
		},
	})
	require.Len(t, got, 3)
	require.Equal(t, string(genai.RoleModel), got[0].Role)
	require.Equal(t, string(genai.RoleUser), got[1].Role)
	require.Equal(t, "and rents?", got[2].Parts[0].Text)
}

func TestGenerate_HappyPath(t *testing.T) {
	var seen generateBody
	srv := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Paris prices are stable."}]}}]}`, &seen)
	defer srv.Close()

	tokens := &countingTokens{token: "key-1"}
	c := newTestClient(t, srv, tokens)

	resp, err := c.Generate(context.Background(), domain.CompletionRequest{
		SystemInstruction: "You are a helpful real estate assistant.",
		Message:           "How are prices in Paris?",
	})
	require.NoError(t, err)
	require.Equal(t, "Paris prices are stable.", resp.Text)

	require.Len(t, seen.Contents, 1)
	require.Equal(t, "user", seen.Contents[0].Role)
	require.Equal(t, "How are prices in Paris?", seen.Contents[0].Parts[0].Text)
	require.NotNil(t, seen.SystemInstruction)
	require.Equal(t, "You are a helpful real estate assistant.", seen.SystemInstruction.Parts[0].Text)

	_, err = c.Generate(context.Background(), domain.CompletionRequest{Message: "again"})
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&tokens.calls))
}

func TestGenerate_EmptyText(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, `{"candidates":[]}`, nil)
	defer srv.Close()

	c := newTestClient(t, srv, paramstore.StaticToken("k"))
	_, err := c.Generate(context.Background(), domain.CompletionRequest{Message: "hi"})
	require.ErrorContains(t, err, "empty response text")
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv := newGeminiServer(t, http.StatusInternalServerError,
		`{"error":{"code":500,"message":"backend error","status":"INTERNAL"}}`, nil)
	defer srv.Close()

	c := newTestClient(t, srv, paramstore.StaticToken("k"))
	_, err := c.Generate(context.Background(), domain.CompletionRequest{Message: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "gemini: generate content")
}

func TestGenerate_TokenError(t *testing.T) {
	c, err := NewClient(&countingTokens{err: errors.New("ssm down")}, "gemini-test")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), domain.CompletionRequest{Message: "hi"})
	require.ErrorContains(t, err, "ssm down")
}
