package vision

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dateFormats covers the shapes models actually emit despite being asked
// for ISO 8601.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// parseReceiptJSON extracts the JSON object from model output, tolerating
// markdown fences and surrounding prose, and normalizes the date.
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("unterminated JSON object in model output")
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt data: %w", err)
	}

	data.Date = normalizeDate(data.Date)
	data.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))

	if data.Total < 0 {
		return nil, fmt.Errorf("negative total %v", data.Total)
	}

	return &data, nil
}

// normalizeDate returns the date in YYYY-MM-DD, falling back to today when
// no known format matches.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().Format(time.DateOnly)
	}

	for _, format := range dateFormats {
		if d, err := time.Parse(format, raw); err == nil {
			return d.Format(time.DateOnly)
		}
	}

	return time.Now().Format(time.DateOnly)
}
