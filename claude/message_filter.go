package claude

import (
	"encoding/json"

	"github.com/xiaoyuanzhu-com/my-life-db/claude/models"
)

// FilterMessages drops user messages that carry no useful content from the
// view: a user turn with no typed text (no string content and no "text"
// block left after system-tag filtering) and no accompanying toolUseResult
// payload is dropped. This covers pure tool_result turns, which are
// redundant with the tool_use/result the assistant turn already displays,
// and also turns whose only text is a system-injected tag. A user turn that
// does carry a toolUseResult is a real tool invocation outcome and survives
// the filter.
func FilterMessages(messages []ConversationMessage) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(messages))
	for _, m := range messages {
		if m.Type == "user" && isPureToolResultUser(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// isPureToolResultUser re-hydrates the envelope this reader already parsed
// into a models.UserSessionMessage and delegates to its own notion of
// "useful content" rather than re-deriving the same rule here.
func isPureToolResultUser(m ConversationMessage) bool {
	if len(m.Message) == 0 && len(m.ToolUseResult) == 0 {
		return false
	}

	envelope := struct {
		Message       json.RawMessage `json:"message,omitempty"`
		ToolUseResult json.RawMessage `json:"toolUseResult,omitempty"`
	}{Message: m.Message, ToolUseResult: m.ToolUseResult}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return false
	}

	var um models.UserSessionMessage
	if err := json.Unmarshal(raw, &um); err != nil {
		return false
	}

	return !um.HasUsefulContent()
}
