// Package storage tracks item URLs already published in earlier harvest
// loops so repeated runs only hand new findings downstream.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks published candidate-item URLs.
type Store interface {
	Close() error
	SeenItem(url string) (bool, error)
	MarkItem(url string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ItemTTL         time.Duration
	CleanupInterval time.Duration
}

const (
	defaultItemTTL         = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ItemTTL <= 0 {
		opts.ItemTTL = defaultItemTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                  { return nil }
func (noopStore) SeenItem(string) (bool, error) { return false, nil }
func (noopStore) MarkItem(string) error         { return nil }
