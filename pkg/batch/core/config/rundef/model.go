// Package rundef defines the models for run definitions in the Setwave run engine.
// A run definition declaratively describes one chunk-driven remote execution run
// in YAML format: where the record identifiers come from, the script template
// they are pushed into, and what happens to the results.
package rundef

import (
	"os"
	"strings"

	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
)

// RunDefinitionBytes holds the content of a run definition file as a byte slice.
// This is used when loading run definitions into memory.
type RunDefinitionBytes []byte

// RunDefinition represents the top-level structure of a run definition file.
type RunDefinition struct {
	// ID is the unique identifier for the run definition.
	ID string `yaml:"id"`
	// Name is the logical name of the run; it appears in reports and journals.
	Name string `yaml:"name"`
	// Description is an optional description for the run.
	Description string `yaml:"description,omitempty"`
	// Query is the record-source descriptor (e.g., a SQL query) that selects
	// the candidate record identifiers. It is quoted verbatim in the
	// completion report.
	Query string `yaml:"query"`
	// Source references the record source component that materializes Query
	// into an identifier sequence.
	Source ComponentRef `yaml:"source"`
	// Template holds the script template the identifier chunks are pushed into.
	Template TemplateSpec `yaml:"template"`
	// ChunkSize optionally overrides the engine-level chunk size for this
	// run. Zero means "use the engine default".
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// NotifyOnCompletion requests delivery of the completion report when the
	// run finalizes.
	NotifyOnCompletion bool `yaml:"notify_on_completion,omitempty"`
	// Export optionally configures post-run exports of failures and the report.
	Export *ExportSpec `yaml:"export,omitempty"`
}

// ComponentRef refers to a registered component (e.g., a record source or an exporter).
type ComponentRef struct {
	// Ref is the reference name of the component.
	Ref string `yaml:"ref"`
	// Properties is an optional map of properties injected from the run definition.
	Properties map[string]string `yaml:"properties,omitempty"`
}

// TemplateSpec declares the script template either inline or as a file path.
// Exactly one of the two must be set.
type TemplateSpec struct {
	// Inline is the template text embedded directly in the definition.
	Inline string `yaml:"inline,omitempty"`
	// File is the path of a file holding the template text.
	File string `yaml:"file,omitempty"`
}

// Resolve returns the template text, reading the referenced file when the
// template is not inline. The text is returned verbatim; no placeholder
// substitution happens here.
func (t TemplateSpec) Resolve() (string, error) {
	if t.Inline != "" {
		return t.Inline, nil
	}
	if t.File == "" {
		return "", exception.NewBatchErrorf("rundef", "template defines neither 'inline' nor 'file'")
	}
	data, err := os.ReadFile(t.File)
	if err != nil {
		return "", exception.NewBatchError("rundef", "failed to read template file '"+t.File+"'", err, false, false)
	}
	return string(data), nil
}

// isBlank reports whether the template spec carries no template at all.
func (t TemplateSpec) isBlank() bool {
	return strings.TrimSpace(t.Inline) == "" && strings.TrimSpace(t.File) == ""
}

// ExportSpec configures optional post-run exports. Both sections are
// independent; a nil section disables that export.
type ExportSpec struct {
	// Failures references the component that exports the run's error log.
	Failures *ComponentRef `yaml:"failures,omitempty"`
	// Report references the component that archives the completion report.
	Report *ComponentRef `yaml:"report,omitempty"`
}

// ComponentBuilder is a generic function type for building run components such as
// record sources, failure writers, and report archivers. The builder provides
// access to the framework configuration, the expression resolver, and the
// resource connection resolver, allowing components to resolve dynamic
// properties and connections.
//
// Parameters:
//
//	cfg: The global framework configuration.
//	resolver: The expression resolver for dynamic property resolution.
//	connResolver: The resource connection resolver for resolving database connections.
//	properties: A map of properties injected from the run definition.
//
// Returns:
//
//	The constructed component instance and an error if construction fails.
type ComponentBuilder func(
	cfg *config.Config,
	resolver port.ExpressionResolver,
	connResolver coreAdapter.ResourceConnectionResolver,
	properties map[string]string,
) (interface{}, error)
