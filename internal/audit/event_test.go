package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMarshalOmitsEmptyFields(t *testing.T) {
	event := AuditEvent{
		Timestamp: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		RunID:     "run-1",
		EventType: EventRunStart,
		Status:    StatusSuccess,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)

	if !strings.Contains(s, `"timestamp":"2024-03-15T10:30:00Z"`) {
		t.Errorf("timestamp not ISO 8601: %s", s)
	}
	for _, key := range []string{"sourcePath", "destinationPath", "encodedName", "reasonCode", "fileIdentity", "errorDetails", "metadata"} {
		if strings.Contains(s, key) {
			t.Errorf("empty %s should be omitted: %s", key, s)
		}
	}
}

func TestMarshalEncodedEvent(t *testing.T) {
	event := AuditEvent{
		Timestamp:       time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		RunID:           "run-1",
		EventType:       EventEncoded,
		Status:          StatusSuccess,
		SourcePath:      "/in/dilekce.pdf",
		DestinationPath: "/archive/2024/240315_DILEKCE.pdf",
		EncodedName:     "240315_DILEKCE",
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if raw["encodedName"] != "240315_DILEKCE" {
		t.Errorf("encodedName = %v", raw["encodedName"])
	}
	if raw["eventType"] != "ENCODED" {
		t.Errorf("eventType = %v", raw["eventType"])
	}
}

func TestUnmarshalJSONLineInvalidTimestamp(t *testing.T) {
	_, err := UnmarshalJSONLine([]byte(`{"timestamp":"15/03/2024","runId":"r","eventType":"ENCODED","status":"SUCCESS"}`))
	if err == nil {
		t.Error("expected error for non ISO 8601 timestamp")
	}
}

func TestEventRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	eventTypes := []EventType{EventEncoded, EventRejected, EventDuplicate, EventError}
	reasons := []ReasonCode{"", ReasonNotReady, ReasonLengthMismatch, ReasonAlreadyArchived}

	properties.Property("events survive a JSON line round trip", prop.ForAll(
		func(typeIdx, reasonIdx int, source, encoded string, seconds int64) bool {
			original := AuditEvent{
				Timestamp:   time.Unix(seconds, 0).UTC(),
				RunID:       "run",
				EventType:   eventTypes[typeIdx],
				Status:      StatusSuccess,
				SourcePath:  source,
				EncodedName: encoded,
				ReasonCode:  reasons[reasonIdx],
			}
			data, err := original.MarshalJSON()
			if err != nil {
				return false
			}
			decoded, err := UnmarshalJSONLine(data)
			if err != nil {
				return false
			}
			return decoded.Timestamp.Equal(original.Timestamp) &&
				decoded.EventType == original.EventType &&
				decoded.SourcePath == original.SourcePath &&
				decoded.EncodedName == original.EncodedName &&
				decoded.ReasonCode == original.ReasonCode
		},
		gen.IntRange(0, len(eventTypes)-1),
		gen.IntRange(0, len(reasons)-1),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Int64Range(0, 4102444800),
	))

	properties.TestingRun(t)
}
