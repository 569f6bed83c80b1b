package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns a Document into bytes and back. The protocol is selected once
// per store; it affects only the byte representation, never the merge
// semantics.
type Codec interface {
	// Ext is the file extension denoting this protocol, including the dot.
	Ext() string
	Marshal(doc *Document) ([]byte, error)
	Unmarshal(data []byte, doc *Document) error
}

// JSONCodec is the text protocol: a self-describing document of numbers,
// strings, mappings, and sequences.
type JSONCodec struct{}

func (JSONCodec) Ext() string { return ".json" }

func (JSONCodec) Marshal(doc *Document) ([]byte, error) {
	data, err := json.Marshal(doc.wire())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, doc *Document) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to deserialize document: %w", err)
	}
	parsed, err := documentFromWire(raw)
	if err != nil {
		return err
	}
	*doc = *parsed
	return nil
}

// MsgpackCodec is the binary protocol: structurally the same document in an
// opaque encoding.
type MsgpackCodec struct{}

func (MsgpackCodec) Ext() string { return ".msgpack" }

func (MsgpackCodec) Marshal(doc *Document) ([]byte, error) {
	data, err := msgpack.Marshal(doc.wire())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return data, nil
}

func (MsgpackCodec) Unmarshal(data []byte, doc *Document) error {
	var raw any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to deserialize document: %w", err)
	}
	parsed, err := documentFromWire(raw)
	if err != nil {
		return err
	}
	*doc = *parsed
	return nil
}

// CodecForPath selects the protocol from the backing file's extension.
func CodecForPath(path string) (Codec, error) {
	switch ext := filepath.Ext(path); ext {
	case ".json":
		return JSONCodec{}, nil
	case ".msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("no codec for extension %q", ext)
	}
}
