package alarm

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype the service messages are encoded with.
const CodecName = "json"

// jsonCodec marshals service messages as JSON.
type jsonCodec struct{}

func init() { //nolint:gochecknoinits // Codecs must be registered before any connection is used.
	encoding.RegisterCodec(jsonCodec{})
}

// Marshal implements encoding.Codec.
func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}

	return data, nil
}

// Unmarshal implements encoding.Codec.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}

	return nil
}

// Name implements encoding.Codec.
func (jsonCodec) Name() string { return CodecName }
