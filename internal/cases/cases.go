// Package cases loads the data-driven chatbot test cases.
package cases

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Case pairs a message to send with the substring its reply must contain.
// Cases are immutable and run independently against a shared session.
type Case struct {
	MessageToSend string `json:"message_to_send"`
	ExpectedReply string `json:"expected_reply"`
}

// Name returns a stable subtest name for the case.
func (c Case) Name() string {
	name := strings.TrimSpace(c.MessageToSend)
	// Truncate on rune boundaries so non-ASCII messages stay valid UTF-8.
	if runes := []rune(name); len(runes) > 40 {
		name = string(runes[:40])
	}
	return strings.ReplaceAll(name, " ", "_")
}

// Load reads and validates cases from a JSON file.
func Load(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON case list.
func Parse(data []byte) ([]Case, error) {
	var list []Case
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode cases: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("cases file contains no test cases")
	}
	for i, c := range list {
		if strings.TrimSpace(c.MessageToSend) == "" {
			return nil, fmt.Errorf("case %d: message_to_send is empty", i)
		}
		if c.ExpectedReply == "" {
			return nil, fmt.Errorf("case %d: expected_reply is empty", i)
		}
	}
	return list, nil
}
