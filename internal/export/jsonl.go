package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONLExporter exports a conversation's messages one JSON object per
// line, reusing the same message shape JSONExporter nests under
// "messages" so jsonl and json stay wire-compatible per message.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(record Record, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range record.Messages {
		line := jsonMessage{
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Model:     msg.Model,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode message %d: %w", msg.Idx, err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
