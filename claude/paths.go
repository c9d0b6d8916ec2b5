package claude

import (
	"path/filepath"
	"strings"
)

// sessionIDFromPath derives a session id from a JSONL file's basename stem,
// e.g. "/a/b/<uuid>.jsonl" -> "<uuid>".
func sessionIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isIndexableSessionFile is the single predicate shared by the full scan
// and the filesystem watch filter: a candidate is a top-level session
// transcript, not a sub-agent's log.
func isIndexableSessionFile(name string) bool {
	if !strings.HasSuffix(name, ".jsonl") {
		return false
	}
	return !strings.HasPrefix(name, "agent-")
}
