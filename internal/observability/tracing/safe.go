package tracing

import (
	"errors"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

// Tax IDs and buyer addresses must never reach a span.
var sensitiveKeys = map[attribute.Key]struct{}{
	"business_vat_id": {},
	"ip_address":      {},
	"postal_code":     {},
}

var vatIDPattern = regexp.MustCompile(`[A-Z]{2}[0-9A-Z]{8,12}`)

// SafeAttributes drops attributes that may carry buyer data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := sensitiveKeys[attr.Key]; ok {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError masks anything shaped like a tax ID in the error text.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(vatIDPattern.ReplaceAllString(err.Error(), "[redacted]"))
}
