package events

import (
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// DeduplicationConfig holds configuration for error deduplication
type DeduplicationConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupInterval time.Duration // 0 disables the background janitor
}

// DefaultDeduplicationConfig returns default deduplication settings
func DefaultDeduplicationConfig() *DeduplicationConfig {
	return &DeduplicationConfig{
		Enabled:         true,
		TTL:             5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// ErrorDeduplicator suppresses repeats of the same error within a TTL.
// Errors are the same when component, category and message match.
type ErrorDeduplicator struct {
	seen *cache.Cache

	totalSeen       atomic.Uint64
	totalSuppressed atomic.Uint64
}

// DeduplicationStats contains deduplication statistics
type DeduplicationStats struct {
	TotalSeen       uint64
	TotalSuppressed uint64
	CacheSize       int
}

// NewErrorDeduplicator creates a new error deduplicator
func NewErrorDeduplicator(config *DeduplicationConfig) *ErrorDeduplicator {
	if config == nil {
		config = DefaultDeduplicationConfig()
	}
	return &ErrorDeduplicator{
		seen: cache.New(config.TTL, config.CleanupInterval),
	}
}

// ShouldProcess reports whether event is the first of its kind within the TTL.
// A nil deduplicator lets everything through.
func (ed *ErrorDeduplicator) ShouldProcess(event ErrorEvent) bool {
	if ed == nil {
		return true
	}
	ed.totalSeen.Add(1)

	// Add fails when an unexpired entry exists.
	if err := ed.seen.Add(dedupKey(event), struct{}{}, cache.DefaultExpiration); err != nil {
		ed.totalSuppressed.Add(1)
		return false
	}
	return true
}

// GetStats returns deduplication statistics
func (ed *ErrorDeduplicator) GetStats() DeduplicationStats {
	if ed == nil {
		return DeduplicationStats{}
	}
	return DeduplicationStats{
		TotalSeen:       ed.totalSeen.Load(),
		TotalSuppressed: ed.totalSuppressed.Load(),
		CacheSize:       ed.seen.ItemCount(),
	}
}

// Shutdown drops all remembered errors.
func (ed *ErrorDeduplicator) Shutdown() {
	if ed == nil {
		return
	}
	ed.seen.Flush()
}

func dedupKey(event ErrorEvent) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(event.GetComponent()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(event.GetCategory()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(event.GetMessage()))
	return string(h.Sum(nil))
}
