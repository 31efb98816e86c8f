package run

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// EncodeJSON returns the JSON encoding string with HTML escaping disabled.
func EncodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeString writes s to w.
func writeString(w io.Writer, s string) error {
	_, err := fmt.Fprint(w, s)
	return err
}
