package ingestion

import (
	"time"

	"github.com/your-org/docflow/pkg/xmldoc"
)

// DocumentParsedEventType is the event_type header of a DocumentEvent.
const DocumentParsedEventType = "document.parsed"

// DocumentEvent is emitted when a stored object has been parsed.
type DocumentEvent struct {
	ID        string           `json:"id"`
	EventName string           `json:"event_name"`
	Container string           `json:"container"`
	Key       string           `json:"key"`
	ETag      string           `json:"etag,omitempty"`
	Sequencer string           `json:"sequencer,omitempty"`
	Document  *xmldoc.Document `json:"document"`
	ParsedAt  time.Time        `json:"parsed_at"`
}
