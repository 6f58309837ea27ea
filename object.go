package marshal

import (
	"fmt"
	"math"
	"strconv"

	orderedjson "github.com/nspcc-dev/go-ordered-json"
)

// Object returns the value-tree representation of an ordinary Marshal
// object (spec.md section 3.2, "ordinary instance"). ivars is merged
// in verbatim; callers are expected to have already applied the
// instance-variable-prefix convention to its keys.
func Object(class string, ivars *orderedjson.OrderedMap) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(ClassKey, Symbol(class))
	o.Set(TypeKey, TypeObject)
	return cloneInto(o, ivars)
}

// Struct returns the value-tree representation of a Marshal struct
// (spec.md section 3.2, "struct").
func Struct(class string, members *orderedjson.OrderedMap) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(ClassKey, Symbol(class))
	o.Set(TypeKey, TypeStruct)
	return cloneInto(o, members)
}

// ClassRef / ModuleRef return the value-tree representation of a bare
// class or module reference (spec.md section 3.2).
func ClassRef(name string) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(ClassKey, Symbol(name))
	o.Set(TypeKey, TypeClass)
	return o
}

func ModuleRef(name string) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(ClassKey, Symbol(name))
	o.Set(TypeKey, TypeModule)
	return o
}

// UserDefined returns the value-tree representation of an opaque
// user-defined (tag 'u') payload.
func UserDefined(class string, data []byte) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(ClassKey, Symbol(class))
	o.Set(TypeKey, TypeUserDef)
	ints := make([]int, len(data))
	for i, b := range data {
		ints[i] = int(b)
	}
	o.Set(DataKey, ints)
	return o
}

// UserMarshal returns the value-tree representation of a
// user-marshal-delegate (tag 'U') payload.
func UserMarshal(class string, inner Tree) *orderedjson.OrderedMap {
	o := NewObject()
	o.Set(ClassKey, Symbol(class))
	o.Set(TypeKey, TypeUserMarshal)
	o.Set(DataKey, inner)
	return o
}

// WithExtends attaches the __extends marker (spec.md section 3.2,
// "extended by module(s)") listing the wrapping modules outermost
// first.
func WithExtends(o *orderedjson.OrderedMap, modules []string) *orderedjson.OrderedMap {
	if len(modules) == 0 {
		return o
	}
	symbols := make([]string, len(modules))
	for i, m := range modules {
		symbols[i] = Symbol(m)
	}
	o.Set(ExtendsKey, symbols)
	return o
}

// WithDefault attaches the __default marker (spec.md section 3.2,
// "hash with default").
func WithDefault(o *orderedjson.OrderedMap, def Tree) *orderedjson.OrderedMap {
	o.Set(DefaultKey, def)
	return o
}

// IVarKey applies the caller-chosen instance-variable prefix to a
// source ivar name, stripping the leading '@' first (spec.md section
// 4.1, "instance_var_prefix").
func IVarKey(prefix, name string) string {
	if len(name) > 0 && name[0] == '@' {
		name = name[1:]
	}
	return prefix + name
}

// SourceIVarName reverses IVarKey: strips prefix and re-adds the
// leading '@', unless the remainder already starts with one (spec.md
// section 9, "Ivar naming").
func SourceIVarName(prefix, key string) (name string, ok bool) {
	if len(key) < len(prefix) || key[:len(prefix)] != prefix {
		return "", false
	}
	name = key[len(prefix):]
	if len(name) == 0 || name[0] != '@' {
		name = "@" + name
	}
	return name, true
}

// StringifyIntegerKey / StringifyFloatKey / StringifyObjectKey build
// the typed hash-key prefixes from spec.md section 3.2 / 4.1.4.
func StringifyIntegerKey(n int64) string {
	return IntegerKeyPrefix + strconv.FormatInt(n, 10)
}

func StringifyFloatKey(f float64) string {
	return FloatKeyPrefix + formatFloatKey(f)
}

func StringifyObjectKey(slot int) string {
	return ObjectKeyPrefix + strconv.Itoa(slot)
}

func formatFloatKey(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func cloneInto(dst, src *orderedjson.OrderedMap) *orderedjson.OrderedMap {
	if src == nil {
		return dst
	}
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		dst.Set(k, v)
	}
	return dst
}

// DescribeKind returns a short human-readable kind name for o's
// __type, used in error messages (spec.md section 7,
// "MalformedSentinel(key)").
func DescribeKind(o *orderedjson.OrderedMap) string {
	if o == nil {
		return "<nil>"
	}
	t, ok := o.Get(TypeKey)
	if !ok {
		return "hash"
	}
	return fmt.Sprintf("%v", t)
}
