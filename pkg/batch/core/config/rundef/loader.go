package rundef

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// LoadedRunDefinitions holds all loaded run definitions.
// This map is used by the RunFactory to retrieve definitions by their ID.
var LoadedRunDefinitions = make(map[string]RunDefinition)

// definitionOrder records load order so the first loaded definition can serve
// as the default when no run name is configured.
var definitionOrder []string

// LoadRunDefinitionFromBytes loads one run definition from a YAML byte slice.
// This function is typically used by the application to load an embedded
// run definition file.
func LoadRunDefinitionFromBytes(data []byte) error {
	logger.Infof("Starting run definition loading.")

	var def RunDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return exception.NewBatchError("rundef_loader", "Failed to parse run definition file", err, false, false)
	}

	if def.ID == "" {
		return exception.NewBatchError("rundef_loader", "'id' is not defined in run definition file", nil, false, false)
	}
	if def.Name == "" {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition '%s' does not have 'name' defined", def.ID), nil, false, false)
	}
	if def.Query == "" {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition '%s' does not have 'query' defined", def.ID), nil, false, false)
	}
	if def.Source.Ref == "" {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition '%s' does not have 'source.ref' defined", def.ID), nil, false, false)
	}
	if def.Template.isBlank() {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition '%s' does not define a template ('inline' or 'file')", def.ID), nil, false, false)
	}
	if def.Template.Inline != "" && def.Template.File != "" {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition '%s' defines both 'inline' and 'file' templates", def.ID), nil, false, false)
	}
	if def.ChunkSize < 0 {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition '%s' has a negative 'chunk_size'", def.ID), nil, false, false)
	}

	if _, exists := LoadedRunDefinitions[def.ID]; exists {
		return exception.NewBatchError("rundef_loader", fmt.Sprintf("run definition ID '%s' is duplicated", def.ID), nil, false, false)
	}

	LoadedRunDefinitions[def.ID] = def
	definitionOrder = append(definitionOrder, def.ID)
	logger.Infof("Loaded run definition '%s'.", def.ID)
	logger.Infof("Run definition loading completed. Number of definitions loaded: %d", len(LoadedRunDefinitions))
	return nil
}

// GetRunDefinition retrieves a run definition by its ID.
func GetRunDefinition(id string) (RunDefinition, bool) {
	def, ok := LoadedRunDefinitions[id]
	return def, ok
}

// DefaultRunDefinitionID returns the ID of the first loaded run definition.
// The second return value is false when nothing has been loaded.
func DefaultRunDefinitionID() (string, bool) {
	if len(definitionOrder) == 0 {
		return "", false
	}
	return definitionOrder[0], true
}

// GetLoadedRunDefinitionCount returns the number of loaded run definitions.
func GetLoadedRunDefinitionCount() int {
	return len(LoadedRunDefinitions)
}

// ClearLoadedRunDefinitions drops all loaded definitions. It exists for
// reload scenarios and tests.
func ClearLoadedRunDefinitions() {
	LoadedRunDefinitions = make(map[string]RunDefinition)
	definitionOrder = nil
}
