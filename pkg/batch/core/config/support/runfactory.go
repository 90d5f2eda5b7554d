// Package support provides supporting structures and factories for the run engine,
// including the central RunFactory for constructing runs and their components.
package support

import (
	"fmt"

	coreAdapter "github.com/tigerroll/setwave/pkg/batch/core/adapter"
	port "github.com/tigerroll/setwave/pkg/batch/core/application/port"
	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	rundef "github.com/tigerroll/setwave/pkg/batch/core/config/rundef"
	model "github.com/tigerroll/setwave/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
	serialization "github.com/tigerroll/setwave/pkg/batch/support/util/serialization"
	"go.uber.org/fx"
)

// RunAssembly bundles everything the engine needs to execute one run:
// the domain run itself, the record source that yields its identifiers,
// and the optional post-run exporters.
type RunAssembly struct {
	// Definition is the run definition the assembly was built from.
	Definition rundef.RunDefinition
	// Run is the freshly created domain run in state NOT_STARTED.
	Run *model.Run
	// Source yields the run's candidate record identifiers.
	Source port.RecordSource
	// FailureWriter exports the error log after the run finalizes. Nil when
	// the definition configures no failure export.
	FailureWriter port.FailureWriter
	// ReportArchiver stores the completion report after the run finalizes.
	// Nil when the definition configures no report export.
	ReportArchiver port.ReportArchiver
}

// RunFactory is the central factory for constructing runs from loaded run
// definitions. It resolves registered component builders to instantiate the
// record source and the optional exporters.
type RunFactory struct {
	config             *config.Config
	expressionResolver port.ExpressionResolver
	connResolver       coreAdapter.ResourceConnectionResolver
	componentBuilders  map[string]rundef.ComponentBuilder
}

// RunFactoryParams defines the parameters that the NewRunFactory function
// receives via dependency injection (Fx).
type RunFactoryParams struct {
	fx.In
	Cfg          *config.Config                         // Global configuration for the engine.
	Resolver     port.ExpressionResolver                // ExpressionResolver for resolving dynamic expressions within definitions.
	ConnResolver coreAdapter.ResourceConnectionResolver // Resolver for database and storage connection names.
}

// NewRunFactory creates a new instance of RunFactory.
//
// Parameters:
//
//	p: The RunFactoryParams struct containing injected dependencies.
//
// Returns:
//
//	A pointer to the initialized RunFactory.
func NewRunFactory(p RunFactoryParams) *RunFactory {
	return &RunFactory{
		config:             p.Cfg,
		expressionResolver: p.Resolver,
		connResolver:       p.ConnResolver,
		componentBuilders:  make(map[string]rundef.ComponentBuilder),
	}
}

// GetConfig returns a reference to the Config held by the RunFactory.
func (f *RunFactory) GetConfig() *config.Config {
	return f.config
}

// RegisterComponentBuilder registers a component builder function with the given name.
//
// Parameters:
//
//	name: The reference name of the component.
//	builder: The function to build the component.
func (f *RunFactory) RegisterComponentBuilder(name string, builder rundef.ComponentBuilder) {
	f.componentBuilders[name] = builder
}

// CreateRun constructs the run and its components for the specified run
// definition ID. When id is empty, the first loaded definition is used.
//
// Parameters:
//
//	id: The ID of the run definition to assemble, or "" for the default.
//
// Returns:
//
//	The assembled run and an error. Returns an error if the definition is
//	not found, a builder is not registered, or component construction fails.
func (f *RunFactory) CreateRun(id string) (*RunAssembly, error) {
	if id == "" {
		defaultID, ok := rundef.DefaultRunDefinitionID()
		if !ok {
			return nil, exception.NewBatchErrorf("run_factory", "no run definitions are loaded")
		}
		id = defaultID
	}

	def, ok := rundef.GetRunDefinition(id)
	if !ok {
		return nil, exception.NewBatchErrorf("run_factory", "run definition '%s' not found", id)
	}

	template, err := def.Template.Resolve()
	if err != nil {
		return nil, exception.NewBatchError("run_factory", fmt.Sprintf("failed to resolve template for run definition '%s'", id), err, false, false)
	}

	run, err := model.NewRun(def.Name, def.Query, template, def.NotifyOnCompletion)
	if err != nil {
		return nil, exception.NewBatchError("run_factory", fmt.Sprintf("failed to create run for definition '%s'", id), err, false, false)
	}

	sourceInstance, err := f.buildComponent(def.Source)
	if err != nil {
		return nil, err
	}
	source, ok := sourceInstance.(port.RecordSource)
	if !ok {
		return nil, exception.NewBatchErrorf("run_factory", "component '%s' does not implement port.RecordSource", def.Source.Ref)
	}

	assembly := &RunAssembly{
		Definition: def,
		Run:        run,
		Source:     source,
	}

	if def.Export != nil && def.Export.Failures != nil {
		instance, err := f.buildComponent(*def.Export.Failures)
		if err != nil {
			return nil, err
		}
		writer, ok := instance.(port.FailureWriter)
		if !ok {
			return nil, exception.NewBatchErrorf("run_factory", "component '%s' does not implement port.FailureWriter", def.Export.Failures.Ref)
		}
		assembly.FailureWriter = writer
	}

	if def.Export != nil && def.Export.Report != nil {
		instance, err := f.buildComponent(*def.Export.Report)
		if err != nil {
			return nil, err
		}
		archiver, ok := instance.(port.ReportArchiver)
		if !ok {
			return nil, exception.NewBatchErrorf("run_factory", "component '%s' does not implement port.ReportArchiver", def.Export.Report.Ref)
		}
		assembly.ReportArchiver = archiver
	}

	return assembly, nil
}

// buildComponent resolves the builder registered under ref.Ref and invokes it
// with the factory's shared dependencies.
func (f *RunFactory) buildComponent(ref rundef.ComponentRef) (interface{}, error) {
	builder, found := f.componentBuilders[ref.Ref]
	if !found {
		return nil, exception.NewBatchErrorf("run_factory", "component builder '%s' not registered", ref.Ref)
	}

	logger.Debugf("Building component '%s' with properties: %v", ref.Ref, maskProperties(ref.Properties))

	instance, err := builder(f.config, f.expressionResolver, f.connResolver, ref.Properties)
	if err != nil {
		return nil, exception.NewBatchError("run_factory", fmt.Sprintf("failed to build component '%s'", ref.Ref), err, false, false)
	}
	return instance, nil
}

// maskProperties converts definition properties for log output with sensitive
// values masked.
func maskProperties(properties map[string]string) map[string]interface{} {
	values := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		values[k] = v
	}
	return serialization.MaskSensitiveMap(values, config.GetMaskedParameterKeys())
}
