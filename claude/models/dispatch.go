package models

import "encoding/json"

type typeEnvelope struct {
	Type string `json:"type"`
}

// ParseSessionMessage unmarshals a raw JSONL line into the concrete
// SessionMessageI implementation its "type" field names, stashing the
// original bytes in RawJSON so re-marshaling reproduces the line exactly
// rather than a lossy round-trip through the typed fields.
func ParseSessionMessage(raw json.RawMessage) (SessionMessageI, error) {
	var env typeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "user":
		var m UserSessionMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m.Raw = raw
		return &m, nil
	case "assistant":
		var m AssistantSessionMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m.Raw = raw
		return &m, nil
	case "system":
		var m SystemSessionMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m.Raw = raw
		return &m, nil
	case "summary":
		var m SummarySessionMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m.Raw = raw
		return &m, nil
	default:
		var m UnknownSessionMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m.Raw = raw
		return &m, nil
	}
}
