package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	guarderrors "github.com/guardlang/guard/pkgs/errors"
)

// FromJSON normalizes a JSON document into a path-aware Value tree.
// Object key order is preserved by decoding with a streaming
// token reader rather than into a map[string]any, satisfying the
// Map insertion-order invariant.
func FromJSON(data []byte) (Value, error) {
	normalized := normalizeBareBooleans(data)
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.UseNumber()

	v, err := decodeJSONValue(dec, Root())
	if err != nil {
		return Value{}, guarderrors.Wrap(guarderrors.ErrParse, "invalid JSON document", err)
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder, path Path) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeJSONToken(dec, tok, path)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token, path Path) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap(path)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("non-string object key %v", keyTok)
				}
				val, err := decodeJSONValue(dec, path.Key(key))
				if err != nil {
					return Value{}, err
				}
				m.MapSet(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return m, nil
		case '[':
			var items []Value
			idx := 0
			for dec.More() {
				val, err := decodeJSONValue(dec, path.Index(idx))
				if err != nil {
					return Value{}, err
				}
				items = append(items, val)
				idx++
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return NewList(items, path), nil
		}
	case nil:
		return NewNull(path), nil
	case bool:
		return NewBool(t, path), nil
	case json.Number:
		return decodeJSONNumber(t, path)
	case string:
		return NewString(t, path), nil
	}
	return Value{}, fmt.Errorf("unrecognized JSON token %v", tok)
}

// decodeJSONNumber keeps integers integral when representable in an
// int64, accepts uint64 values that overflow int64 with a documented
// precision loss by widening to float64, and otherwise decodes as a
// float.
func decodeJSONNumber(n json.Number, path Path) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return NewInt(i, path), nil
	}
	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return NewFloat(float64(u), path), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, err
	}
	return NewFloat(f, path), nil
}

// ReadJSON is a convenience wrapper reading and decoding a whole stream.
func ReadJSON(r io.Reader) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, guarderrors.NewIOError("<stream>", err)
	}
	return FromJSON(data)
}
