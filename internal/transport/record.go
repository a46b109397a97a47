package transport

import (
	"encoding/json"
	"time"
)

// Record is a single log entry before formatting.
type Record struct {
	Time    time.Time
	Level   string
	Message string
	Meta    map[string]any
}

// FormatFunc renders a record into the bytes written to the file, including
// any trailing newline. Formatting is pure; the transport never inspects the
// payload it produces.
type FormatFunc func(Record) []byte

// JSONFormat is the default formatter: one JSON object per line with ts,
// level, and msg keys plus flattened metadata. Metadata cannot shadow the
// core keys.
func JSONFormat(r Record) []byte {
	obj := make(map[string]any, len(r.Meta)+3)
	for k, v := range r.Meta {
		obj[k] = v
	}
	obj["ts"] = r.Time.UTC().Format(time.RFC3339Nano)
	obj["level"] = r.Level
	obj["msg"] = r.Message

	payload, err := json.Marshal(obj)
	if err != nil {
		// Unmarshalable metadata values degrade to the core fields.
		payload, _ = json.Marshal(map[string]any{
			"ts":    r.Time.UTC().Format(time.RFC3339Nano),
			"level": r.Level,
			"msg":   r.Message,
		})
	}
	return append(payload, '\n')
}
