package payload

import (
	"fmt"
	"math"

	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("payload: cbor enc mode: %v", err))
	}
	encMode = mode
}

// Encode serializes m as a CBOR map. A nil map encodes as an empty map.
func Encode(m Map) ([]byte, error) {
	native, err := toNative(MapOf(m), "")
	if err != nil {
		return nil, err
	}
	b, err := encMode.Marshal(native)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrEncoding, err)
	}
	return b, nil
}

// Decode parses one CBOR map. Zero-length input yields an empty Map.
func Decode(b []byte) (Map, error) {
	if len(b) == 0 {
		return Map{}, nil
	}
	var raw any
	if err := cbor.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrMalformedPayload, err)
	}
	v, err := fromNative(raw, "")
	if err != nil {
		return nil, err
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("%w: top level is %s, want map", protocol.ErrMalformedPayload, v.Kind())
	}
	return m, nil
}

func toNative(v Value, path string) (any, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindString:
		return v.s, nil
	case KindBool:
		return v.b, nil
	case KindBytes:
		return v.raw, nil
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			n, err := toNative(item, join(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case KindList:
		out := make([]any, 0, len(v.l))
		for i, item := range v.l {
			n, err := toNative(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: invalid value at %q", protocol.ErrEncoding, path)
	}
}

func fromNative(raw any, path string) (Value, error) {
	switch x := raw.(type) {
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: integer at %q overflows int64", protocol.ErrMalformedPayload, path)
		}
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case string:
		return Str(x), nil
	case bool:
		return Bool(x), nil
	case []byte:
		return Value{kind: KindBytes, raw: x}, nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			v, err := fromNative(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[any]any:
		m := make(Map, len(x))
		for k, item := range x {
			key, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: non-string key %v at %q", protocol.ErrMalformedPayload, k, path)
			}
			v, err := fromNative(item, join(path, key))
			if err != nil {
				return Value{}, err
			}
			m[key] = v
		}
		return MapOf(m), nil
	case map[string]any:
		m := make(Map, len(x))
		for key, item := range x {
			v, err := fromNative(item, join(path, key))
			if err != nil {
				return Value{}, err
			}
			m[key] = v
		}
		return MapOf(m), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported item %T at %q", protocol.ErrMalformedPayload, raw, path)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
