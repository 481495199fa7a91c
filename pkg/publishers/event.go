package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

// Event is the payload published after an acquisition run completes.
type Event struct {
	RunID       string                     `json:"run_id"`
	Category    string                     `json:"category,omitempty"`
	Items       []domain.CandidateItem     `json:"items"`
	Diagnostics []domain.SourceDiagnostics `json:"diagnostics"`
	CompletedAt time.Time                  `json:"completed_at"`
}

// Encode renders the event as JSON for wire transports.
func (e Event) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding run event %s: %w", e.RunID, err)
	}
	return payload, nil
}
