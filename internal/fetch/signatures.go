package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Anti-bot classification is heuristic. The marker list ships with defaults
// observed on common challenge vendors and can be replaced at runtime from a
// YAML/JSON file so operators can react when target sites rotate defenses.

var defaultBlockMarkers = []string{
	"robotcheck",
	"/challenge",
	"cf-chl",
	"captcha",
	"attention required",
	"access denied",
	"verify you are human",
}

var defaultBlockStatuses = []int{403, 429}

// SignatureSet holds the current anti-bot signatures. Safe for concurrent use.
type SignatureSet struct {
	mu       sync.RWMutex
	markers  []string
	statuses map[int]bool
}

// signatureFile is the on-disk shape of a signature override file.
type signatureFile struct {
	Signatures struct {
		Markers       []string `json:"markers" yaml:"markers"`
		BlockStatuses []int    `json:"block_statuses" yaml:"block_statuses"`
	} `json:"signatures" yaml:"signatures"`
}

// DefaultSignatures returns a SignatureSet seeded with the built-in markers.
func DefaultSignatures() *SignatureSet {
	s := &SignatureSet{}
	s.replace(defaultBlockMarkers, defaultBlockStatuses)
	return s
}

// Reload replaces the signature set from the given YAML or JSON file.
// The previous set stays active when loading fails.
func (s *SignatureSet) Reload(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("signatures file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open signatures file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read signatures file: %w", err)
	}

	parsed, err := parseSignatureFile(raw, filepath.Ext(path))
	if err != nil {
		return err
	}
	if len(parsed.Signatures.Markers) == 0 {
		return errors.New("signatures file contains no markers")
	}

	s.replace(parsed.Signatures.Markers, parsed.Signatures.BlockStatuses)
	return nil
}

func parseSignatureFile(data []byte, ext string) (signatureFile, error) {
	var parsed signatureFile
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".json":
		if err := json.Unmarshal(data, &parsed); err != nil {
			return signatureFile{}, fmt.Errorf("decode json signatures: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return signatureFile{}, fmt.Errorf("decode yaml signatures: %w", err)
		}
	}
	return parsed, nil
}

func (s *SignatureSet) replace(markers []string, statuses []int) {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	statusIdx := make(map[int]bool, len(statuses))
	for _, code := range statuses {
		statusIdx[code] = true
	}

	s.mu.Lock()
	s.markers = lowered
	s.statuses = statusIdx
	s.mu.Unlock()
}

// Matches reports whether the response looks like an anti-bot block page.
// A marker hit in the body counts at any status; a block status with an
// empty body also counts (challenge vendors often strip bodies entirely).
func (s *SignatureSet) Matches(statusCode int, body []byte) bool {
	s.mu.RLock()
	markers := s.markers
	blockStatus := s.statuses[statusCode]
	s.mu.RUnlock()

	low := strings.ToLower(string(body))
	for _, m := range markers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return blockStatus && strings.TrimSpace(low) == ""
}

// BlockStatus reports whether the status code alone is on the block list.
func (s *SignatureSet) BlockStatus(statusCode int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[statusCode]
}
