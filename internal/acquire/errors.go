package acquire

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

// StrictLiveViolation is the run-level failure raised when strict-live is
// enabled and a required source did not go live. It enumerates every
// source's final status so callers can tell "all blocked" from "one
// blocked, others fine".
type StrictLiveViolation struct {
	Offending []string
	Statuses  map[string]domain.SourceStatus
}

func (e *StrictLiveViolation) Error() string {
	parts := make([]string, 0, len(e.Statuses))
	ids := make([]string, 0, len(e.Statuses))
	for id := range e.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%s", id, e.Statuses[id]))
	}
	return fmt.Sprintf("strict-live violation: required sources not live: %s (all statuses: %s)",
		strings.Join(e.Offending, ", "), strings.Join(parts, ", "))
}

// ConfigurationError reports an invalid option combination, raised before
// any fetch occurs.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}
