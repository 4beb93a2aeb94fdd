// Package bsm implements the binary secure metadata convention: object keys
// prefixed with a sentinel character mark nodes that carry, or reference,
// externally stored binary payloads.
package bsm

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel marks a binary-bearing key inside a metadata document.
const Sentinel = "$"

// Document is a parsed JSON metadata tree (maps, slices and scalars).
type Document = map[string]any

// Kind discriminates node variants instead of relying on key sniffing at
// every call site.
type Kind int

const (
	KindScalar Kind = iota
	KindNested
	KindBinary
)

// Node is one visited position in a document walk.
type Node struct {
	Kind  Kind
	Key   string // key under which the node was reached, "" for list elements
	Value any
}

// KindOf classifies a key/value pair.
func KindOf(key string, value any) Kind {
	if len(key) > 0 && key[:1] == Sentinel {
		return KindBinary
	}
	switch value.(type) {
	case map[string]any, []any:
		return KindNested
	default:
		return KindScalar
	}
}

// Walk visits every node of the document exactly once, in an unspecified
// order. The callback may return an error to abort the walk.
func Walk(doc any, fn func(n Node) error) error {
	switch v := doc.(type) {
	case map[string]any:
		for key, val := range v {
			if err := fn(Node{Kind: KindOf(key, val), Key: key, Value: val}); err != nil {
				return err
			}
			if err := Walk(val, fn); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range v {
			if err := fn(Node{Kind: KindOf("", item), Value: item}); err != nil {
				return err
			}
			if err := Walk(item, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// BlobID extracts the referenced blob id from a binary node value.
// Supported reference form is a map carrying an "id" field. Inline base64
// payloads carry no id and report ok=false.
func BlobID(value any) (uuid.UUID, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return uuid.Nil, false
	}
	raw, ok := m["id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CollectBlobIDs returns the blob id of every reachable binary node, one
// entry per occurrence. Inline payload nodes without an id are skipped.
func CollectBlobIDs(doc any) []uuid.UUID {
	var ids []uuid.UUID
	_ = Walk(doc, func(n Node) error {
		if n.Kind != KindBinary {
			return nil
		}
		if id, ok := BlobID(n.Value); ok {
			ids = append(ids, id)
		}
		return nil
	})
	return ids
}

// InlinePayload extracts the base64 payload of a binary node, which is
// either a direct string or a map with a "blob" sub-key.
func InlinePayload(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case map[string]any:
		if b64, ok := v["blob"].(string); ok {
			return b64, true
		}
	}
	return "", false
}

// Decode returns a copy of doc in which every sentinel-prefixed key holding
// an inline base64 payload is replaced by the raw bytes under the stripped
// key. Reference-form binary nodes (carrying only an id) are left as is.
func Decode(doc Document) (Document, error) {
	out, err := decodeValue(doc)
	if err != nil {
		return nil, err
	}
	return out.(Document), nil
}

func decodeValue(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if KindOf(key, val) == KindBinary {
				if b64, ok := InlinePayload(val); ok {
					raw, err := base64.StdEncoding.DecodeString(b64)
					if err != nil {
						return nil, fmt.Errorf("decode payload %s: %w", key, err)
					}
					out[key[1:]] = raw
					continue
				}
			}
			dec, err := decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[key] = dec
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			dec, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return value, nil
	}
}

// Encode is the inverse of Decode: every raw []byte value is replaced by a
// base64 string under the sentinel-prefixed key.
func Encode(doc Document) Document {
	return encodeValue(doc).(Document)
}

func encodeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if raw, ok := val.([]byte); ok {
				out[Sentinel+key] = base64.StdEncoding.EncodeToString(raw)
				continue
			}
			out[key] = encodeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = encodeValue(item)
		}
		return out
	default:
		return value
	}
}

// TemplateBlobID finds the blob id stored under the sentinel-prefixed
// template key for the given version anywhere in the document.
func TemplateBlobID(doc any, version string) (uuid.UUID, bool) {
	return findBlobID(doc, Sentinel+version)
}

// ImageBlobID finds the blob id of the sentinel-prefixed image key.
func ImageBlobID(doc any) (uuid.UUID, bool) {
	return findBlobID(doc, Sentinel+"image")
}

func findBlobID(doc any, key string) (uuid.UUID, bool) {
	var found uuid.UUID
	ok := false
	_ = Walk(doc, func(n Node) error {
		if ok || n.Key != key {
			return nil
		}
		if id, idOK := BlobID(n.Value); idOK {
			found = id
			ok = true
		}
		return nil
	})
	return found, ok
}
