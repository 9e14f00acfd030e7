package wallpanel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EntityIDs accepts either a single id, a comma separated string of ids
// or a list of ids. Ids are trimmed and lowercased; blanks are dropped.
type EntityIDs []string

func (e *EntityIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}

	var raw []string
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.Split(s, ",")
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("entity_id must be a string or a list of strings")
	}

	*e = normalizeIDs(raw)
	return nil
}

func normalizeIDs(raw []string) EntityIDs {
	var ids EntityIDs
	for _, id := range raw {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ServiceData is the body of a service call.
type ServiceData struct {
	EntityID   EntityIDs `json:"entity_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	URL        string    `json:"url,omitempty"`
	Brightness *int      `json:"brightness,omitempty"`
}

// ParseServiceData decodes a service call body. An empty body is valid and
// targets every device.
func ParseServiceData(body []byte) (ServiceData, error) {
	var data ServiceData
	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return data, fmt.Errorf("%w: %v", ErrInvalidCall, err)
	}
	return data, nil
}

func (s ServiceData) Call(action Action) Call {
	return Call{
		Action:     action,
		TargetIDs:  []string(s.EntityID),
		Message:    s.Message,
		URL:        s.URL,
		Brightness: s.Brightness,
	}
}
