// This file implements the shared data model described in spec.md
// section 3: a JSON-shaped dynamic value tree plus the
// sentinel-prefixed string conventions that let that tree carry the
// full Marshal type space (symbols, big integers, regular
// expressions, typed hash keys, wrapped objects...).
//
// Object-shaped nodes are *orderedjson.OrderedMap, the ordered JSON
// object type from github.com/nspcc-dev/go-ordered-json, so that key
// insertion order (spec.md invariant 1 and the "hash with duplicate
// keys" scenario in section 8.1) survives a JSON round trip without
// any bespoke map type of our own.
package marshal

import (
	"encoding/json"

	orderedjson "github.com/nspcc-dev/go-ordered-json"
)

// Tree is any node of the value tree: nil, bool, int64, float64,
// string, []Tree, or *orderedjson.OrderedMap.
type Tree = interface{}

// Sentinel string/key conventions (spec.md section 3.2).
const (
	SymbolPrefix = "__symbol__"

	IntegerKeyPrefix = "__integer__"
	FloatKeyPrefix   = "__float__"
	ObjectKeyPrefix  = "__object__"

	TypeKey    = "__type"
	ClassKey   = "__class"
	ExtendsKey = "__extends"
	DefaultKey = "__default"
	DataKey    = "__data"
)

// __type discriminator values.
const (
	TypeBigInt      = "bigint"
	TypeBytes       = "bytes"
	TypeRegexp      = "regexp"
	TypeFloat       = "float"
	TypeObject      = "object"
	TypeStruct      = "struct"
	TypeClass       = "class"
	TypeModule      = "module"
	TypeUserDef     = "userdef"
	TypeUserMarshal = "usermarshal"
)

// NewObject returns an empty ordered JSON object.
func NewObject() *orderedjson.OrderedMap {
	return orderedjson.NewOrderedMap()
}

// Symbol returns the value-tree representation of a Marshal symbol:
// a JSON string carrying the __symbol__ prefix (spec.md section 3.2).
func Symbol(name string) string {
	return SymbolPrefix + name
}

// IsSymbol reports whether s is a value-tree symbol string, and if so
// returns its unprefixed name.
func IsSymbol(s string) (name string, ok bool) {
	if len(s) >= len(SymbolPrefix) && s[:len(SymbolPrefix)] == SymbolPrefix {
		return s[len(SymbolPrefix):], true
	}
	return "", false
}

// Bytes returns the typed-object representation of a raw byte string
// (spec.md section 3.2, "string (raw bytes)").
func Bytes(b []byte) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(TypeKey, TypeBytes)
	data := make([]int, len(b))
	for i, c := range b {
		data[i] = int(c)
	}
	o.Set("data", data)
	return o
}

// AsBytes reports whether o is a {"__type":"bytes",...} node and, if
// so, decodes its "data" array back into a []byte.
func AsBytes(o *orderedjson.OrderedMap) ([]byte, bool) {
	if o == nil {
		return nil, false
	}
	t, ok := o.Get(TypeKey)
	if !ok || t != TypeBytes {
		return nil, false
	}
	raw, ok := o.Get("data")
	if !ok {
		return []byte{}, true
	}
	return toByteSlice(raw), true
}

func toByteSlice(v interface{}) []byte {
	switch s := v.(type) {
	case []interface{}:
		out := make([]byte, len(s))
		for i, e := range s {
			out[i] = byte(toInt64(e))
		}
		return out
	case []int:
		out := make([]byte, len(s))
		for i, e := range s {
			out[i] = byte(e)
		}
		return out
	default:
		return nil
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

// BigInt returns the typed-object representation of a multi-precision
// integer (spec.md section 3.2, "big integer").
func BigInt(decimal string) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(TypeKey, TypeBigInt)
	o.Set("value", decimal)
	return o
}

// AsBigInt reports whether o is a {"__type":"bigint",...} node and, if
// so, returns its decimal string.
func AsBigInt(o *orderedjson.OrderedMap) (string, bool) {
	if o == nil {
		return "", false
	}
	t, ok := o.Get(TypeKey)
	if !ok || t != TypeBigInt {
		return "", false
	}
	v, _ := o.Get("value")
	s, _ := v.(string)
	return s, true
}

// Regexp returns the typed-object representation of a Ruby-style
// regular expression (spec.md section 3.2, "regular expression").
func Regexp(expression, flags string) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(TypeKey, TypeRegexp)
	o.Set("expression", expression)
	o.Set("flags", flags)
	return o
}

// NonFiniteFloat returns the typed-object representation of a
// non-finite float (spec.md section 3.2's parenthetical: "non-finite
// as the string forms 'inf','-inf','nan' under a typed object").
// token must be one of "inf", "-inf", "nan".
func NonFiniteFloat(token string) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(TypeKey, TypeFloat)
	o.Set("value", token)
	return o
}

// AsNonFiniteFloat reports whether o is a {"__type":"float",...} node
// and, if so, returns its token ("inf", "-inf", or "nan").
func AsNonFiniteFloat(o *orderedjson.OrderedMap) (string, bool) {
	if o == nil {
		return "", false
	}
	t, ok := o.Get(TypeKey)
	if !ok || t != TypeFloat {
		return "", false
	}
	v, _ := o.Get("value")
	s, _ := v.(string)
	return s, true
}
