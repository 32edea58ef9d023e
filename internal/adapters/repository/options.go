// Package repository defines the timeline store interface and its
// in-memory implementation.
package repository

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of lock shards.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.count = n
		}
	}
}
