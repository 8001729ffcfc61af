package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayout is ISO 8601 to the second.
const timestampLayout = time.RFC3339

// eventFields carries the JSON tags of AuditEvent without its methods.
type eventFields AuditEvent

// MarshalJSON writes the event as one JSON object with an ISO 8601 UTC
// timestamp. Empty optional fields are omitted.
func (e AuditEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		eventFields
	}{e.Timestamp.UTC().Format(timestampLayout), eventFields(e)})
}

// UnmarshalJSON reads an event written by MarshalJSON.
func (e *AuditEvent) UnmarshalJSON(data []byte) error {
	wire := struct {
		Timestamp string `json:"timestamp"`
		*eventFields
	}{eventFields: (*eventFields)(e)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	t, err := time.Parse(timestampLayout, wire.Timestamp)
	if err != nil {
		return fmt.Errorf("bad event timestamp %q: %w", wire.Timestamp, err)
	}
	e.Timestamp = t
	return nil
}

// UnmarshalJSONLine parses one line of the audit log.
func UnmarshalJSONLine(line []byte) (*AuditEvent, error) {
	e := new(AuditEvent)
	if err := json.Unmarshal(line, e); err != nil {
		return nil, err
	}
	return e, nil
}
