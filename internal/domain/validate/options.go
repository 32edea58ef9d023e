// Package validate checks raw passages against registration, device and
// stage state before they enter the scoring pipeline.
package validate

import "time"

// defaultLookupTimeout bounds the external lookup calls per passage.
const defaultLookupTimeout = 2 * time.Second

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithLookupTimeout bounds the combined registration/device/stage lookup
// time for a single passage.
func WithLookupTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.lookupTimeout = d
		}
	}
}
