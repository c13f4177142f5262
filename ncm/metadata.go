package ncm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is the document carried by the container. Only the format is
// interpreted, the other keys are kept as they were found.
type Metadata struct {
	Format string
	Fields map[string]json.RawMessage

	// Raw is the plaintext the record was parsed from.
	Raw []byte
}

// ParseMetadata parses the plaintext returned by UnwrapMetadata.
func ParseMetadata(plain []byte) (*Metadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(plain, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	} else if fields == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrMetadata)
	}

	raw, ok := fields["format"]
	if !ok {
		return nil, fmt.Errorf("%w: missing format field", ErrMetadata)
	}

	var format string
	if err := json.Unmarshal(raw, &format); err != nil {
		return nil, fmt.Errorf("%w: format is not a string: %s", ErrMetadata, raw)
	} else if !validFormat(format) {
		return nil, fmt.Errorf("%w: unusable format %q", ErrMetadata, format)
	}

	delete(fields, "format")
	return &Metadata{Format: format, Fields: fields, Raw: bytes.Clone(plain)}, nil
}

// Extension returns the file extension for the decoded payload, without
// the leading dot.
func (m *Metadata) Extension() string {
	return strings.ToLower(m.Format)
}

// validFormat accepts short alphanumeric tags only, the format ends up in a
// file name.
func validFormat(format string) bool {
	if format == "" || len(format) > 16 {
		return false
	}

	for _, c := range format {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}

	return true
}

func (m *Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}

	format, err := json.Marshal(m.Format)
	if err != nil {
		return nil, err
	}

	out["format"] = format
	return json.Marshal(out)
}
