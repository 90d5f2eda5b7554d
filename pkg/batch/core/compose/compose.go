// Package compose renders record identifier chunks into executable scripts.
//
// A composed script starts with a literal declaration binding the chunk's
// identifiers to a well-known variable, followed by the caller-supplied
// template on the next line. Templates are written against that variable name
// and are submitted verbatim, never parsed or validated here.
package compose

import (
	"strings"

	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
)

const moduleName = "compose"

// BindingVariable is the variable name composed scripts bind the chunk's
// record identifiers to. Every script template is written assuming this name
// exists and is populated, so it is a fixed contract and must not change.
const BindingVariable = "ids"

// RenderIDList renders identifiers as a bracketed, comma-separated list with
// each identifier double-quoted, preserving input order. The same rendering
// serves as the chunk descriptor in error log entries, so a recorded failure
// names the exact identifiers that were submitted.
//
// Identifiers are embedded verbatim: a quote character inside an identifier
// is not escaped and will corrupt the list literal. Callers whose identifiers
// are free-form must sanitize them before reaching this package.
func RenderIDList(ids []string) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`"`)
		sb.WriteString(id)
		sb.WriteString(`"`)
	}
	sb.WriteString("]")
	return sb.String()
}

// Compose prepends the identifier declaration to template and returns the
// executable script. The template is used as-is, never validated. An empty
// identifier sequence is a caller error and yields an InvalidChunk error.
func Compose(template string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", exception.NewInvalidChunkError(moduleName, "cannot compose a script from an empty identifier chunk")
	}

	var sb strings.Builder
	sb.WriteString(BindingVariable)
	sb.WriteString(" = ")
	sb.WriteString(RenderIDList(ids))
	sb.WriteString(";\n")
	sb.WriteString(template)
	return sb.String(), nil
}
