package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
)

// SnapshotKey identifies one captured response body. Distinct (source, pass,
// sequence) triples never collide, so concurrent writers are safe.
type SnapshotKey struct {
	Source string
	Pass   domain.Pass
	Seq    int
}

func (k SnapshotKey) empty() bool { return k.Source == "" }

// SnapshotSink persists raw fetched bodies for offline inspection. Writing is
// best-effort: failures are logged and never surface to the fetch path.
type SnapshotSink struct {
	dir string
	log logger.Logger
}

// NewSnapshotSink builds a sink rooted at dir. An empty dir returns nil,
// which disables capture.
func NewSnapshotSink(dir string, log logger.Logger) *SnapshotSink {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	return &SnapshotSink{dir: dir, log: logger.Ensure(log)}
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Write stores body under <dir>/<source>/<pass>_<seq>.html.
func (s *SnapshotSink) Write(key SnapshotKey, body []byte) {
	if s == nil || key.empty() {
		return
	}

	source := unsafePathChars.ReplaceAllString(key.Source, "_")
	outDir := filepath.Join(s.dir, source)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		s.log.WarnObj("snapshot directory create failed", "snapshot_error", map[string]any{
			"dir":   outDir,
			"error": err.Error(),
		})
		return
	}

	name := fmt.Sprintf("%s_%04d.html", key.Pass, key.Seq)
	if err := os.WriteFile(filepath.Join(outDir, name), body, 0o644); err != nil {
		s.log.WarnObj("snapshot write failed", "snapshot_error", map[string]any{
			"file":  name,
			"error": err.Error(),
		})
	}
}
