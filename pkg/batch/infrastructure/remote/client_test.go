package remote_test

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	remote "github.com/tigerroll/setwave/pkg/batch/infrastructure/remote"
)

// capturedRequest decodes the outbound envelope by local name so assertions
// survive any prefix choice.
type capturedRequest struct {
	XMLName xml.Name `xml:"Envelope"`
	Header  struct {
		Session struct {
			SessionID string `xml:"sessionId"`
		} `xml:"SessionHeader"`
	} `xml:"Header"`
	Body struct {
		Execute struct {
			Script string `xml:"script"`
		} `xml:"executeScript"`
	} `xml:"Body"`
}

type failingSessionProvider struct {
	err error
}

func (p *failingSessionProvider) SessionID(ctx context.Context) (string, error) {
	return "", p.err
}

func soapResponse(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soapenv:Body>` + inner + `</soapenv:Body></soapenv:Envelope>`
}

func resultResponse(result string) string {
	return soapResponse(`<executeScriptResponse xmlns="http://soap.setwave.io/exec"><result>` + result + `</result></executeScriptResponse>`)
}

func newTestClient(t *testing.T, endpoint string, provider port.SessionProvider) *remote.Client {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Setwave.Remote.Endpoint = endpoint
	cfg.Setwave.Remote.TimeoutSeconds = 5
	return remote.NewClient(remote.ClientParams{Config: cfg, SessionProvider: provider})
}

func TestClient_Execute_Success(t *testing.T) {
	script := "ids = [\"a\",\"b\"];\ndelete(ids);"
	var rawBody string
	var request capturedRequest
	var contentType, soapAction string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		soapAction = r.Header.Get("SOAPAction")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		rawBody = string(body)
		require.NoError(t, xml.Unmarshal(body, &request))
		fmt.Fprint(w, resultResponse(`<success>true</success><compiled>true</compiled>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("session-123"))
	outcome := client.Execute(context.Background(), script)

	assert.True(t, outcome.Succeeded)
	assert.Empty(t, outcome.FailureDetail)

	assert.Equal(t, "text/xml; charset=UTF-8", contentType)
	assert.Equal(t, `"executeScript"`, soapAction)
	assert.True(t, strings.HasPrefix(rawBody, xml.Header))
	assert.Contains(t, rawBody, `xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"`)
	assert.Contains(t, rawBody, `xmlns:exec="http://soap.setwave.io/exec"`)
	assert.Equal(t, "session-123", request.Header.Session.SessionID)
	assert.Equal(t, script, request.Body.Execute.Script)
}

func TestClient_Execute_RuntimeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultResponse(`<success>false</success><compiled>true</compiled>`+
			`<exceptionMessage>System.NullPointerException: record is locked</exceptionMessage>`+
			`<exceptionStackTrace>AnonymousBlock: line 1, column 1</exceptionStackTrace>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "noop();")

	assert.False(t, outcome.Succeeded)
	assert.Equal(t, model.FailureKindRemoteRuntime, outcome.FailureKind)
	assert.Equal(t, "System.NullPointerException: record is locked\nAnonymousBlock: line 1, column 1", outcome.FailureDetail)
}

func TestClient_Execute_RuntimeFailureWithoutDiagnostics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultResponse(`<success>false</success><compiled>true</compiled>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "noop();")

	assert.Equal(t, model.FailureKindRemoteRuntime, outcome.FailureKind)
	assert.Equal(t, "remote execution failed", outcome.FailureDetail)
}

func TestClient_Execute_CompileFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultResponse(`<success>false</success><compiled>false</compiled>`+
			`<compileProblem>unexpected token: ')'</compileProblem><line>3</line><column>7</column>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "broken(;")

	assert.Equal(t, model.FailureKindRemoteCompile, outcome.FailureKind)
	assert.Equal(t, "compile problem: unexpected token: ')' (line 3, column 7)", outcome.FailureDetail)
}

func TestClient_Execute_CompileFailureKeepsRuntimeDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultResponse(`<success>false</success><compiled>false</compiled>`+
			`<exceptionMessage>line 3:7 no viable alternative</exceptionMessage>`+
			`<compileProblem>unexpected token</compileProblem><line>3</line><column>7</column>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "broken(;")

	assert.Equal(t, model.FailureKindRemoteCompile, outcome.FailureKind)
	assert.Equal(t, "line 3:7 no viable alternative\ncompile problem: unexpected token (line 3, column 7)", outcome.FailureDetail)
}

func TestClient_Execute_ServerStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "noop();")

	assert.Equal(t, model.FailureKindServerStatus, outcome.FailureKind)
	assert.Equal(t, "unexpected server response [500]: boom", outcome.FailureDetail)
}

func TestClient_Execute_MissingRequiredNodes(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		detail   string
	}{
		{
			name:     "missing executeScriptResponse",
			response: soapResponse(``),
			detail:   "malformed response: missing executeScriptResponse",
		},
		{
			name:     "missing result",
			response: soapResponse(`<executeScriptResponse xmlns="http://soap.setwave.io/exec"></executeScriptResponse>`),
			detail:   "malformed response: missing result",
		},
		{
			name:     "missing success",
			response: resultResponse(`<compiled>true</compiled>`),
			detail:   "malformed response: missing success",
		},
		{
			name:     "missing compiled",
			response: resultResponse(`<success>true</success>`),
			detail:   "malformed response: missing compiled",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.response)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
			outcome := client.Execute(context.Background(), "noop();")

			assert.Equal(t, model.FailureKindProtocol, outcome.FailureKind)
			assert.Equal(t, tc.detail, outcome.FailureDetail)
		})
	}
}

func TestClient_Execute_UnparseableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>this is not the service you are looking for")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "noop();")

	assert.Equal(t, model.FailureKindProtocol, outcome.FailureKind)
	assert.True(t, strings.HasPrefix(outcome.FailureDetail, "malformed response: "), outcome.FailureDetail)
}

func TestClient_Execute_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close() // The endpoint now refuses connections.

	client := newTestClient(t, endpoint, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(context.Background(), "noop();")

	assert.Equal(t, model.FailureKindTransport, outcome.FailureKind)
	assert.True(t, strings.HasPrefix(outcome.FailureDetail, "transport: "), outcome.FailureDetail)
}

func TestClient_Execute_SessionFailure(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	provider := &failingSessionProvider{err: fmt.Errorf("token service unavailable")}
	client := newTestClient(t, server.URL, provider)
	outcome := client.Execute(context.Background(), "noop();")

	assert.Equal(t, model.FailureKindTransport, outcome.FailureKind)
	assert.Equal(t, "transport: token service unavailable", outcome.FailureDetail)
	assert.False(t, called, "no request should be sent without a session token")
}

func TestClient_Execute_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := config.NewConfig()
	cfg.Setwave.Remote.Endpoint = server.URL
	cfg.Setwave.Remote.TimeoutSeconds = 1
	client := remote.NewClient(remote.ClientParams{Config: cfg, SessionProvider: remote.NewStaticSessionProvider("s")})

	start := time.Now()
	outcome := client.Execute(context.Background(), "noop();")

	assert.Equal(t, model.FailureKindTransport, outcome.FailureKind)
	assert.Contains(t, outcome.FailureDetail, "context deadline exceeded")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestClient_Execute_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultResponse(`<success>true</success><compiled>true</compiled>`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server.URL, remote.NewStaticSessionProvider("s"))
	outcome := client.Execute(ctx, "noop();")

	assert.Equal(t, model.FailureKindTransport, outcome.FailureKind)
}
