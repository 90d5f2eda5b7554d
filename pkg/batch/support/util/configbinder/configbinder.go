package configbinder

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds a map of properties to a target struct using mapstructure.
// It uses the "yaml" tag for binding and allows weakly typed input (e.g., string to int conversion).
//
// Parameters:
//
//	properties: The map of properties to bind.
//	target: The target struct to bind the properties to.
//
// Returns:
//
//	An error if binding fails.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "yaml", // Use "yaml" tag for binding.
		WeaklyTypedInput: true,   // Allow converting strings to numeric types.
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		return fmt.Errorf("failed to decode properties: %w", err)
	}

	return nil
}

// BindStringProperties binds run definition properties (which arrive as a
// string-valued map) to a target struct. Weak typing converts numeric and
// boolean values as needed.
func BindStringProperties(properties map[string]string, target interface{}) error {
	values := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		values[k] = v
	}
	return BindProperties(values, target)
}

// BindSection binds one named subsection of a properties map to a target struct.
// The section must be absent or a map; any other shape is an error. A missing
// section leaves the target untouched so callers keep their defaults.
func BindSection(properties map[string]interface{}, section string, target interface{}) error {
	raw, ok := properties[section]
	if !ok || raw == nil {
		return nil
	}

	sub, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("section '%s' is not a map (got %T)", section, raw)
	}

	if err := BindProperties(sub, target); err != nil {
		return fmt.Errorf("failed to bind section '%s': %w", section, err)
	}

	return nil
}
