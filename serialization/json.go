package serialization

import (
	"encoding/json"
	"io"
)

// JSONCodec reads and writes states as JSON.
type JSONCodec struct {
}

// NewJSONCodec creates a codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Encode writes s to writer.
func (c JSONCodec) Encode(s *State, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	return encoder.Encode(s)
}

// Decode reads a state. Unknown fields are rejected.
func (c JSONCodec) Decode(reader io.Reader) (*State, error) {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	s := &State{}

	err := decoder.Decode(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}
