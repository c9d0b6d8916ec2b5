package claude

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/xiaoyuanzhu-com/my-life-db/apierrors"
	"github.com/xiaoyuanzhu-com/my-life-db/db"
	"github.com/xiaoyuanzhu-com/my-life-db/log"
)

type readerLine struct {
	Type          string          `json:"type"`
	UUID          string          `json:"uuid"`
	ParentUUID    *string         `json:"parentUuid,omitempty"`
	Timestamp     string          `json:"timestamp"`
	IsSidechain   *bool           `json:"isSidechain,omitempty"`
	CWD           string          `json:"cwd,omitempty"`
	DurationMs    int64           `json:"durationMs,omitempty"`
	Message       json.RawMessage `json:"message,omitempty"`
	ToolUseResult json.RawMessage `json:"toolUseResult,omitempty"`
}

// FetchConversation resolves sessionId to its JSONL file, parses the
// user/assistant turns, reconstructs the reply chain, and filters out
// noise before returning it. It never caches across calls — a caller that
// wants a caching layer puts one in front of this.
func FetchConversation(store *db.Store, archiveRoot, sessionID string) ([]ConversationMessage, error) {
	path, err := resolveSessionPath(store, archiveRoot, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := parseConversationFile(path, sessionID)
	if err != nil {
		return nil, apierrors.ConversationReadFailed(err)
	}

	chain := reconstructChain(messages)
	return FilterMessages(chain), nil
}

func resolveSessionPath(store *db.Store, archiveRoot, sessionID string) (string, error) {
	rec, getErr := store.Get(sessionID)
	hadFilePath := getErr == nil && rec.FilePath != ""

	if hadFilePath {
		if _, statErr := os.Stat(rec.FilePath); statErr == nil {
			return rec.FilePath, nil
		}
	}

	if path, found := findSessionFile(archiveRoot, sessionID); found {
		return path, nil
	}

	if hadFilePath {
		return "", apierrors.FileNotFound(rec.FilePath)
	}
	return "", apierrors.ConversationNotFound(sessionID)
}

// findSessionFile falls back to scanning the archive root tree for
// <sessionId>.jsonl when the store's recorded path is stale or absent.
func findSessionFile(archiveRoot, sessionID string) (string, bool) {
	entries, err := os.ReadDir(archiveRoot)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(archiveRoot, e.Name(), sessionID+".jsonl")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func parseConversationFile(path, sessionID string) ([]ConversationMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var messages []ConversationMessage
	reader := bufio.NewReader(file)
	lineNum := 0

	for {
		lineNum++
		lineBytes, readErr := reader.ReadBytes('\n')
		if len(lineBytes) > 0 {
			if m, ok := parseConversationLine(lineBytes, lineNum, sessionID); ok {
				messages = append(messages, m)
			}
		}
		if readErr != nil {
			break
		}
	}

	return messages, nil
}

func parseConversationLine(lineBytes []byte, lineNum int, sessionID string) (ConversationMessage, bool) {
	line := strings.TrimSpace(string(lineBytes))
	if line == "" {
		return ConversationMessage{}, false
	}

	// Read tool results can embed an entire file's text twice over (the
	// legacy toolUseResult.file.content field and the tool_result content
	// block); strip it before this line's content ever reaches a client.
	stripped := StripReadToolContent([]byte(line))

	var l readerLine
	if err := json.Unmarshal(stripped, &l); err != nil {
		log.Debug().Err(err).Int("line", lineNum).Str("sessionId", sessionID).Msg("skipping malformed jsonl line")
		return ConversationMessage{}, false
	}

	if l.Type != "user" && l.Type != "assistant" {
		return ConversationMessage{}, false
	}

	return ConversationMessage{
		UUID:             l.UUID,
		ParentUUID:       l.ParentUUID,
		SessionID:        sessionID,
		Type:             l.Type,
		Timestamp:        l.Timestamp,
		IsSidechain:      l.IsSidechain != nil && *l.IsSidechain,
		WorkingDirectory: l.CWD,
		DurationMs:       l.DurationMs,
		Message:          l.Message,
		ToolUseResult:    l.ToolUseResult,
	}, true
}
