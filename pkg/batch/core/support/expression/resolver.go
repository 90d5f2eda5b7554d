// Package expression provides utilities for resolving dynamic property
// expressions within run definitions, e.g. export paths that embed the
// run name or a timestamp.
package expression

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	"github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// DefaultExpressionResolver is an implementation that resolves dynamic
// property expressions against the current run.
type DefaultExpressionResolver struct{}

// NewDefaultExpressionResolver creates a new instance of DefaultExpressionResolver.
func NewDefaultExpressionResolver() port.ExpressionResolver {
	return &DefaultExpressionResolver{}
}

// Regular expression pattern: Captures the form #{...}
var expressionPattern = regexp.MustCompile(`\#\{(.+?)\}`)

// Resolve resolves the given expression string and returns the resulting string.
// Strings without #{...} expressions are returned unchanged. An expression
// that cannot be resolved is left in place and logged.
func (r *DefaultExpressionResolver) Resolve(ctx context.Context, expression string, run *model.Run) (string, error) {
	if !expressionPattern.MatchString(expression) {
		// Return as is if not an expression
		return expression, nil
	}

	// Consider the possibility of multiple #{...} and replace all occurrences
	resolvedString := expressionPattern.ReplaceAllStringFunc(expression, func(match string) string {
		// match is "#{...}"
		innerExpression := strings.TrimSpace(match[2 : len(match)-1])

		// 1. Attempt to resolve run attributes
		if val, err := r.resolveRunAttribute(innerExpression, run); err == nil {
			return val
		}

		// 2. Attempt to resolve a formatted timestamp
		if val, err := r.resolveTimestamp(innerExpression); err == nil {
			return val
		}

		logger.Warnf("ExpressionResolver: Unknown expression or key not found: %s", innerExpression)
		return match // Return the original expression if no pattern matches
	})

	return resolvedString, nil
}

// Resolves the format run.<attribute>
var runAttributePattern = regexp.MustCompile(`^run\.([A-Za-z]+)$`)

func (r *DefaultExpressionResolver) resolveRunAttribute(expr string, run *model.Run) (string, error) {
	matches := runAttributePattern.FindStringSubmatch(expr)
	if len(matches) != 2 {
		return "", fmt.Errorf("pattern mismatch")
	}

	if run == nil {
		logger.Warnf("ExpressionResolver: Skipping resolution of dynamic expression '%s' because no run is in scope.", expr)
		return "", fmt.Errorf("no run in scope")
	}

	switch matches[1] {
	case "id":
		return run.ID, nil
	case "name":
		return run.Name, nil
	case "state":
		return run.State.String(), nil
	case "failureCount":
		return strconv.Itoa(run.FailureCount()), nil
	case "chunksProcessed":
		return strconv.Itoa(run.ChunksProcessed), nil
	}
	return "", fmt.Errorf("unknown run attribute '%s'", matches[1])
}

// Resolves the format timestamp['layout'] using the current UTC time.
var timestampPattern = regexp.MustCompile(`^timestamp\['(.+?)'\]$`)

func (r *DefaultExpressionResolver) resolveTimestamp(expr string) (string, error) {
	matches := timestampPattern.FindStringSubmatch(expr)
	if len(matches) != 2 {
		return "", fmt.Errorf("pattern mismatch")
	}
	return time.Now().UTC().Format(matches[1]), nil
}

// Verify that DefaultExpressionResolver implements the port.ExpressionResolver interface.
var _ port.ExpressionResolver = (*DefaultExpressionResolver)(nil)
