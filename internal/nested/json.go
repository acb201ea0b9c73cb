package nested

import (
	"bytes"
	"encoding/json"
	"math"
)

// MarshalJSON writes the Document as a JSON object in key order.
// Non-finite floats have no JSON form and are written as the strings
// "inf", "-inf" and "nan".
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalValue(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case float64:
		switch {
		case math.IsInf(t, 1):
			return json.Marshal("inf")
		case math.IsInf(t, -1):
			return json.Marshal("-inf")
		case math.IsNaN(t):
			return json.Marshal("nan")
		}
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return json.Marshal(v)
}
