package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// defaultExecutionTimeout bounds one remote call when no timeout is configured.
const defaultExecutionTimeout = 120 * time.Second

// Client submits composed scripts to the remote execution endpoint and
// classifies each response. It makes exactly one outbound call per Execute
// and never retries; a failed attempt is returned as data, not raised.
type Client struct {
	endpoint        string
	timeout         time.Duration
	httpClient      *http.Client
	sessionProvider port.SessionProvider
}

// ClientParams defines the dependencies for NewClient.
type ClientParams struct {
	fx.In
	Config          *config.Config
	SessionProvider port.SessionProvider
}

// NewClient creates a Client from the remote section of the application
// configuration. A missing timeout falls back to the 120 second default.
func NewClient(p ClientParams) *Client {
	remoteCfg := p.Config.Setwave.Remote

	timeout := time.Duration(remoteCfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
		logger.Debugf("Remote execution timeout is not configured. Using default: %s", timeout)
	}

	logger.Debugf("Initializing remote execution client (Endpoint: '%s', Timeout: %s).", remoteCfg.Endpoint, timeout)
	return &Client{
		endpoint:        remoteCfg.Endpoint,
		timeout:         timeout,
		httpClient:      &http.Client{},
		sessionProvider: p.SessionProvider,
	}
}

// Execute submits the script and returns the classified outcome. Failure
// precedence: transport, then server status, then protocol violation, then
// the remote-reported runtime or compile failure.
func (c *Client) Execute(ctx context.Context, script string) model.RemoteOutcome {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sessionID, err := c.sessionProvider.SessionID(callCtx)
	if err != nil {
		return transportFailure(err)
	}

	payload, err := buildRequest(script, sessionID)
	if err != nil {
		return transportFailure(err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return transportFailure(err)
	}
	req.Header.Set("Content-Type", requestContentType)
	req.Header.Set("SOAPAction", soapActionHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("unexpected server response [%d]: %s", resp.StatusCode, string(body))
		return model.NewFailureOutcome(model.FailureKindServerStatus, detail)
	}

	result, protocolDetail := parseResponse(body)
	if result == nil {
		return model.NewFailureOutcome(model.FailureKindProtocol, protocolDetail)
	}

	return classifyResult(result)
}

// transportFailure wraps an error raised before any usable HTTP response was
// read.
func transportFailure(err error) model.RemoteOutcome {
	return model.NewFailureOutcome(model.FailureKindTransport, fmt.Sprintf("transport: %v", err))
}

// classifyResult folds a well-formed result node into an outcome. A compile
// failure keeps any runtime diagnostic in front of the compile problem so no
// remote-reported detail is lost.
func classifyResult(result *executeResult) model.RemoteOutcome {
	if *result.Success {
		return model.NewSuccessOutcome()
	}

	detail := result.ExceptionMessage
	if result.ExceptionStackTrace != "" {
		if detail != "" {
			detail += "\n"
		}
		detail += result.ExceptionStackTrace
	}

	if !*result.Compiled {
		problem := fmt.Sprintf("compile problem: %s (line %d, column %d)", result.CompileProblem, result.Line, result.Column)
		if detail != "" {
			detail += "\n"
		}
		detail += problem
		return model.NewFailureOutcome(model.FailureKindRemoteCompile, detail)
	}

	// A blank detail is normalized by the outcome constructor.
	return model.NewFailureOutcome(model.FailureKindRemoteRuntime, detail)
}

// Ensure Client implements the port.ScriptExecutor interface.
var _ port.ScriptExecutor = (*Client)(nil)
