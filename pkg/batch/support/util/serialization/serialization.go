// Package serialization provides helpers for serializing run data that
// crosses a persistence or logging boundary: journaled failure lists and
// configuration maps whose sensitive values must be masked before output.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/setwave/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

const moduleName = "serialization"

// MaskValue is the replacement text for masked sensitive values.
const MaskValue = "********"

// MaskSensitiveMap returns a copy of the given map with every listed key's
// value replaced by MaskValue. The input map is not modified.
func MaskSensitiveMap(values map[string]interface{}, maskedKeys []string) map[string]interface{} {
	if len(values) == 0 {
		return map[string]interface{}{}
	}

	masked := make(map[string]interface{}, len(values))
	for k, v := range values {
		masked[k] = v
	}

	for _, key := range maskedKeys {
		if _, ok := masked[key]; ok {
			masked[key] = MaskValue
		}
	}
	return masked
}

// MaskSecret masks a scalar secret for log output, preserving a short prefix
// so operators can tell distinct credentials apart. Values shorter than five
// characters are fully masked.
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) < 5 {
		return MaskValue
	}
	return value[:4] + MaskValue
}

// MarshalFailures serializes a slice of failure messages into a JSON byte
// slice. A nil slice yields an empty JSON array.
func MarshalFailures(failures []string) ([]byte, error) {
	if failures == nil {
		return []byte("[]"), nil
	}

	data, err := json.Marshal(failures)
	if err != nil {
		logger.Errorf("Failed to serialize failure list: %v", err)
		return nil, exception.NewBatchError(moduleName, "failed to serialize failure list", err, false, false)
	}
	return data, nil
}

// UnmarshalFailures deserializes a JSON byte slice into a slice of failure
// messages. Empty or "null" input yields an empty slice.
func UnmarshalFailures(data []byte, msgs *[]string) error {
	if len(data) == 0 || string(data) == "null" {
		*msgs = []string{}
		return nil
	}

	if err := json.Unmarshal(data, msgs); err != nil {
		logger.Errorf("Failed to deserialize failure list: %v", err)
		return exception.NewBatchError(moduleName, "failed to deserialize failure list", err, false, false)
	}
	return nil
}
