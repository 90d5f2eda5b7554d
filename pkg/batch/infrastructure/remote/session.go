package remote

import (
	"context"
	"os"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
	serialization "github.com/tigerroll/setwave/pkg/batch/support/util/serialization"
)

const moduleName = "remote"

// sessionTokenEnvVar is consulted when no token is configured.
const sessionTokenEnvVar = "SETWAVE_SESSION_TOKEN"

// StaticSessionProvider hands out a pre-issued session token on every call.
type StaticSessionProvider struct {
	token string
}

// NewStaticSessionProvider creates a provider for a fixed token.
func NewStaticSessionProvider(token string) *StaticSessionProvider {
	return &StaticSessionProvider{token: token}
}

// SessionID returns the configured token.
func (p *StaticSessionProvider) SessionID(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", exception.NewBatchErrorf(moduleName, "no session token is configured")
	}
	return p.token, nil
}

// EnvSessionProvider reads the session token from an environment variable on
// every call, so a rotated token is picked up without a restart.
type EnvSessionProvider struct {
	envVar string
}

// NewEnvSessionProvider creates a provider backed by the named variable.
func NewEnvSessionProvider(envVar string) *EnvSessionProvider {
	return &EnvSessionProvider{envVar: envVar}
}

// SessionID returns the variable's current value.
func (p *EnvSessionProvider) SessionID(ctx context.Context) (string, error) {
	token := os.Getenv(p.envVar)
	if token == "" {
		return "", exception.NewBatchErrorf(moduleName, "session token environment variable '%s' is not set", p.envVar)
	}
	return token, nil
}

// NewSessionProvider selects the session source from configuration: a
// configured token wins, otherwise the token is read from the environment.
func NewSessionProvider(cfg *config.Config) port.SessionProvider {
	if token := cfg.Setwave.Remote.SessionToken; token != "" {
		logger.Debugf("Using the configured session token (%s) for remote execution.", serialization.MaskSecret(token))
		return NewStaticSessionProvider(token)
	}
	logger.Debugf("No session token configured. Reading it from '%s' per call.", sessionTokenEnvVar)
	return NewEnvSessionProvider(sessionTokenEnvVar)
}

var _ port.SessionProvider = (*StaticSessionProvider)(nil)
var _ port.SessionProvider = (*EnvSessionProvider)(nil)
