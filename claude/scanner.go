package claude

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/xiaoyuanzhu-com/my-life-db/claude/models"
	"github.com/xiaoyuanzhu-com/my-life-db/db"
	"github.com/xiaoyuanzhu-com/my-life-db/log"
)

const fallbackSummaryMaxLen = 100

// ScanFile streams path line-by-line and reduces it to IndexedMetadata.
// It returns (nil, nil) when the file yields zero user/assistant messages
// and no summary entry, per the store's invariant that empty sessions are
// never written.
//
// Malformed lines are tolerated silently — the writer may be mid-write —
// and never abort the scan; only an error opening the file itself is
// returned.
func ScanFile(path string, mtimeMs int64) (*db.IndexedMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		meta           db.IndexedMetadata
		sawSummary     bool
		fallbackSource string
		sawAny         bool
	)
	meta.SessionID = sessionIDFromPath(path)
	meta.FilePath = path
	meta.LastScannedAtMs = mtimeMs

	reader := bufio.NewReader(file)
	lineNum := 0

	for {
		lineNum++
		lineBytes, readErr := reader.ReadBytes('\n')
		if len(lineBytes) > 0 {
			processScanLine(lineBytes, lineNum, path, &meta, &sawSummary, &fallbackSource, &sawAny)
		}
		if readErr != nil {
			break
		}
	}

	if !sawAny && !sawSummary {
		return nil, nil
	}

	if !sawSummary && fallbackSource != "" {
		meta.Summary = truncateSummary(fallbackSource)
	}

	return &meta, nil
}

func processScanLine(lineBytes []byte, lineNum int, path string, meta *db.IndexedMetadata, sawSummary *bool, fallbackSource *string, sawAny *bool) {
	line := strings.TrimSpace(string(lineBytes))
	if line == "" {
		return
	}

	parsed, err := models.ParseSessionMessage(json.RawMessage(line))
	if err != nil {
		log.Debug().Err(err).Int("line", lineNum).Str("path", path).Msg("skipping malformed jsonl line")
		return
	}

	switch m := parsed.(type) {
	case *models.SummarySessionMessage:
		if m.Summary != "" {
			meta.Summary = m.Summary
			*sawSummary = true
		}
	case *models.UserSessionMessage:
		if sidechain(m.EnvelopeFields) {
			return
		}
		accumulate(meta, m.BaseMessage, m.EnvelopeFields, sawAny)
		if m.Message != nil {
			applyModel(meta, m.Message.Model)
			if *fallbackSource == "" {
				if text := extractTextContent(m.Message.Content); text != "" {
					*fallbackSource = text
				}
			}
		}
	case *models.AssistantSessionMessage:
		if sidechain(m.EnvelopeFields) {
			return
		}
		accumulate(meta, m.BaseMessage, m.EnvelopeFields, sawAny)
		if m.Message != nil {
			applyModel(meta, m.Message.Model)
		}
	case *models.SystemSessionMessage, *models.UnknownSessionMessage:
		// system events and unrecognized lines never contribute to the
		// message/duration rollup or the fallback summary.
	}
}

func sidechain(e models.EnvelopeFields) bool {
	return e.IsSidechain != nil && *e.IsSidechain
}

func applyModel(meta *db.IndexedMetadata, model string) {
	if meta.Model == "" && model != "" {
		meta.Model = model
	}
}

// accumulate folds a user/assistant line's envelope into the running
// IndexedMetadata totals shared by both message types.
func accumulate(meta *db.IndexedMetadata, base models.BaseMessage, env models.EnvelopeFields, sawAny *bool) {
	*sawAny = true
	meta.MessageCount++
	meta.TotalDurationMs += env.DurationMs

	if meta.FirstTimestamp == "" {
		meta.FirstTimestamp = base.Timestamp
	}
	if base.Timestamp != "" {
		meta.LastTimestamp = base.Timestamp
	}
	if meta.ProjectPath == "" && env.CWD != "" {
		meta.ProjectPath = env.CWD
	}
}

// extractTextContent pulls plain text out of a message.content value that
// is either a bare string or a list of typed content blocks, returning the
// concatenation of any "text" blocks.
func extractTextContent(content interface{}) string {
	switch v := content.(type) {
	case string:
		return v
	case []interface{}:
		var parts []string
		for _, item := range v {
			block, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if block["type"] != "text" {
				continue
			}
			if text, ok := block["text"].(string); ok && text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// truncateSummary collapses newlines and truncates to fallbackSummaryMaxLen
// characters, appending an ellipsis when truncated.
func truncateSummary(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= fallbackSummaryMaxLen {
		return s
	}
	return string(runes[:fallbackSummaryMaxLen]) + "..."
}
