package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// unwrapJSONPath strips the one-element array wrapper that JSON.GET returns
// for "$" paths, so callers can unmarshal into a plain struct either way.
func unwrapJSONPath(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return trimmed, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("unwrap json path result: %w", err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("unwrap json path result: empty array")
	}
	return elems[0], nil
}

func decodeJSON(data []byte, v any) error {
	raw, err := unwrapJSONPath(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
