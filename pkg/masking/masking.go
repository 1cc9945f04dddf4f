package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts an identifier but keeps the last four characters so
// support can still match it against a customer report.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskKeys returns a copy of input with string values under the given keys
// masked. Nested maps are walked.
func MaskKeys(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}

	sensitive := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sensitive[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}

	return maskMap(input, sensitive)
}

func maskMap(input map[string]any, sensitive map[string]struct{}) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		_, hide := sensitive[strings.ToLower(trimmedKey)]
		out[trimmedKey] = maskValue(value, hide, sensitive)
	}
	return out
}

func maskValue(value any, hide bool, sensitive map[string]struct{}) any {
	switch cast := value.(type) {
	case string:
		if hide {
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		return maskMap(cast, sensitive)
	default:
		return value
	}
}
