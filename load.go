package marshal

import (
	"math"
	"math/big"
	"unicode/utf8"

	orderedjson "github.com/nspcc-dev/go-ordered-json"
)

// Tag bytes, spec.md section 4.1.1.
const (
	tagNil        = '0'
	tagTrue       = 'T'
	tagFalse      = 'F'
	tagFixnum     = 'i'
	tagFloat      = 'f'
	tagBignum     = 'l'
	tagString     = '"'
	tagSymbol     = ':'
	tagSymlink    = ';'
	tagObjlink    = '@'
	tagArray      = '['
	tagHash       = '{'
	tagHashDefalt = '}'
	tagRegexp     = '/'
	tagObject     = 'o'
	tagStruct     = 'S'
	tagClass      = 'c'
	tagModule     = 'm'
	tagOldModule  = 'M'
	tagExtended   = 'e'
	tagUserClass  = 'C'
	tagUserDef    = 'u'
	tagUserMarsh  = 'U'
	tagIvar       = 'I'
)

var acceptedVersions = [2]byte{4, 8}

// loader walks a Marshal byte stream, the way pe.File.Parse walks a
// PE image: a single forward cursor plus a couple of append-only
// tables (symbols, objects) that later back-reference tags index
// into (spec.md section 2, section 4.1.2).
type loader struct {
	c       *cursor
	symbols []string
	objects []Tree
	opts    Options
	log     *logHelper
}

// Load decodes a Marshal byte stream into a value tree (spec.md
// section 6.3).
func Load(data []byte, opts ...Option) (Tree, error) {
	o := buildOptions(opts)
	c := newCursor(data)

	major, err := c.readByte()
	if err != nil {
		return nil, newLoadError(UnsupportedVersion, 0, "missing header")
	}
	minor, err := c.readByte()
	if err != nil {
		return nil, newLoadError(UnsupportedVersion, 0, "missing header")
	}
	if major != acceptedVersions[0] || minor > acceptedVersions[1] {
		return nil, newLoadError(UnsupportedVersion, 0, "unsupported header %d.%d", major, minor)
	}

	l := &loader{c: c, opts: o, log: o.helper()}
	l.log.Debugf("loading marshal stream of %d bytes", len(data))
	return l.parseValue()
}

// reserveSlot appends a placeholder to the object table and returns
// its index, before any of the value's children are parsed (spec.md
// section 4.1.2). initial should already be the identity-stable
// container (a slice header or OrderedMap pointer) that later
// back-references must resolve to, so that self-referential graphs
// are representable.
func (l *loader) reserveSlot(initial Tree) int {
	l.objects = append(l.objects, initial)
	return len(l.objects) - 1
}

func (l *loader) patchSlot(slot int, final Tree) Tree {
	l.objects[slot] = final
	return final
}

func (l *loader) parseValue() (Tree, error) {
	start := l.c.offset
	tag, err := l.c.readByte()
	if err != nil {
		return nil, err
	}
	return l.dispatch(tag, start)
}

func (l *loader) dispatch(tag byte, start int) (Tree, error) {
	switch tag {
	case tagNil:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil
	case tagFixnum:
		n, err := readSignedLong(l.c)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	case tagFloat:
		return l.parseFloat()
	case tagBignum:
		return l.parseBignum()
	case tagString:
		return l.parseBareString()
	case tagSymbol:
		return l.parseNewSymbol()
	case tagSymlink:
		return l.parseSymlink(start)
	case tagObjlink:
		return l.parseObjlink(start)
	case tagArray:
		return l.parseArray()
	case tagHash:
		return l.parseHash(false)
	case tagHashDefalt:
		return l.parseHash(true)
	case tagRegexp:
		return l.parseRegexp()
	case tagObject:
		return l.parseObject()
	case tagStruct:
		return l.parseStruct()
	case tagClass:
		return l.parseClassOrModule(TypeClass)
	case tagModule:
		return l.parseClassOrModule(TypeModule)
	case tagOldModule:
		return l.parseClassOrModule(TypeClass)
	case tagExtended:
		return l.parseExtended()
	case tagUserClass:
		return l.parseUserClass()
	case tagUserDef:
		return l.parseUserDefined()
	case tagUserMarsh:
		return l.parseUserMarshal()
	case tagIvar:
		return l.parseIvarWrapped()
	default:
		return nil, newLoadError(UnknownTag, start, "unrecognized tag %q (0x%02x)", tag, tag)
	}
}

func (l *loader) parseFloat() (Tree, error) {
	slot := l.reserveSlot(nil)
	f, err := readFloatToken(l.c)
	if err != nil {
		return nil, err
	}
	v := nonFiniteOrNumber(f)
	l.patchSlot(slot, v)
	return v, nil
}

func nonFiniteOrNumber(f float64) Tree {
	switch {
	case math.IsNaN(f):
		return NonFiniteFloat("nan")
	case math.IsInf(f, 1):
		return NonFiniteFloat("inf")
	case math.IsInf(f, -1):
		return NonFiniteFloat("-inf")
	default:
		return f
	}
}

func (l *loader) parseBignum() (Tree, error) {
	start := l.c.offset
	slot := l.reserveSlot(nil)
	signByte, err := l.c.readByte()
	if err != nil {
		return nil, err
	}
	if signByte != '+' && signByte != '-' {
		return nil, newLoadError(BadBigInt, start, "bad sign byte %q", signByte)
	}
	halfwords, err := readSignedLong(l.c)
	if err != nil {
		return nil, err
	}
	if halfwords < 0 {
		return nil, newLoadError(BadBigInt, start, "negative half-word count %d", halfwords)
	}
	magnitude, err := l.c.readN(int(halfwords) * 2)
	if err != nil {
		return nil, err
	}
	value := bigIntFromLittleEndian(magnitude)
	if signByte == '-' {
		value.Neg(value)
	}
	v := BigInt(value.String())
	l.patchSlot(slot, v)
	return v, nil
}

func bigIntFromLittleEndian(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return new(big.Int).SetBytes(be)
}

// parseBareString reads a raw '"' byte string not wrapped by an 'I'
// ivar block, and applies the default (no-encoding) decode rule from
// spec.md section 4.1.3.
func (l *loader) parseBareString() (Tree, error) {
	slot := l.reserveSlot(nil)
	raw, err := readByteString(l.c)
	if err != nil {
		return nil, err
	}
	v, err := l.decodeStringBytes(raw, "", false)
	if err != nil {
		return nil, err
	}
	l.patchSlot(slot, v)
	return v, nil
}

// decodeStringBytes implements spec.md section 4.1.3's decode rule.
// hasEncoding distinguishes "no encoding ivar was present" from "an
// encoding ivar named encodingName was present". A named encoding
// that cannot be resolved or that rejects the bytes is a BadEncoding
// error (spec.md section 9), not a silent fallback.
func (l *loader) decodeStringBytes(raw []byte, encodingName string, hasEncoding bool) (Tree, error) {
	if l.opts.StringMode == StringBinary {
		return Bytes(raw), nil
	}
	if hasEncoding {
		enc, err := resolveEncoding(encodingName)
		if err != nil {
			return nil, newLoadError(BadEncoding, l.c.offset, "%v", err)
		}
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, newLoadError(BadEncoding, l.c.offset, "encoding %q rejected string contents: %v", encodingName, err)
		}
		return string(decoded), nil
	}
	if l.opts.StringMode == StringUTF8 && utf8.Valid(raw) {
		return string(raw), nil
	}
	return Bytes(raw), nil
}

func (l *loader) parseNewSymbol() (Tree, error) {
	raw, err := readByteString(l.c)
	if err != nil {
		return nil, err
	}
	name := string(raw)
	l.symbols = append(l.symbols, name)
	return Symbol(name), nil
}

func (l *loader) parseSymlink(start int) (Tree, error) {
	idx, err := readSignedLong(l.c)
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(l.symbols) {
		return nil, newLoadError(BadSymbolLink, start, "symbol link %d out of range (have %d)", idx, len(l.symbols))
	}
	return Symbol(l.symbols[idx]), nil
}

func (l *loader) parseObjlink(start int) (Tree, error) {
	idx, err := readSignedLong(l.c)
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(l.objects) {
		return nil, newLoadError(BadObjectLink, start, "object link %d out of range (have %d)", idx, len(l.objects))
	}
	return l.objects[idx], nil
}

func (l *loader) parseArray() (Tree, error) {
	n, err := readSignedLong(l.c)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, newLoadError(BadInteger, l.c.offset, "negative array length %d", n)
	}
	arr := make([]Tree, n)
	slot := l.reserveSlot(arr)
	for i := range arr {
		v, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		arr[i] = v
	}
	l.patchSlot(slot, arr)
	return arr, nil
}

func (l *loader) parseHash(hasDefault bool) (Tree, error) {
	n, err := readSignedLong(l.c)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, newLoadError(BadInteger, l.c.offset, "negative hash length %d", n)
	}
	h := NewObject()
	slot := l.reserveSlot(h)
	for i := int32(0); i < n; i++ {
		keySlot := len(l.objects)
		key, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		if len(l.objects) == keySlot {
			keySlot = -1
		}
		val, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		h.Set(l.stringifyHashKey(key, keySlot), val)
	}
	var result Tree = h
	if hasDefault {
		def, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		result = WithDefault(h, def)
	}
	l.patchSlot(slot, result)
	return result, nil
}

// stringifyHashKey implements spec.md section 4.1.4. keySlot is the
// object-table index the key took when it was parsed, or -1 if it took
// none (nil, true, false, or an object link), in which case a slot is
// reserved for it here.
func (l *loader) stringifyHashKey(key Tree, keySlot int) string {
	switch v := key.(type) {
	case string:
		return v
	case int64:
		return StringifyIntegerKey(v)
	case float64:
		return StringifyFloatKey(v)
	default:
		if keySlot < 0 {
			keySlot = l.reserveSlot(key)
		}
		return StringifyObjectKey(keySlot)
	}
}

func (l *loader) parseRegexp() (Tree, error) {
	source, err := readByteString(l.c)
	if err != nil {
		return nil, err
	}
	mask, err := l.c.readByte()
	if err != nil {
		return nil, err
	}
	re := Regexp(string(source), regexpMaskToFlags(mask))
	slot := l.reserveSlot(re)
	l.patchSlot(slot, re)
	return re, nil
}

func regexpMaskToFlags(mask byte) string {
	flags := ""
	if mask&0x01 != 0 {
		flags += "i"
	}
	if mask&0x02 != 0 {
		flags += "x"
	}
	if mask&0x04 != 0 {
		flags += "m"
	}
	return flags
}

// parseSymbolValue reads one value expected to be a symbol (as used
// for class names, ivar names, and extended-module names) and
// extracts its bare name.
func (l *loader) parseSymbolValue() (string, error) {
	v, err := l.parseValue()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", newLoadError(MalformedSentinel, l.c.offset, "expected a symbol, got %T", v)
	}
	if name, ok := IsSymbol(s); ok {
		return name, nil
	}
	return s, nil
}

func (l *loader) parseIvarPairs() (*orderedjson.OrderedMap, string, bool, error) {
	n, err := readSignedLong(l.c)
	if err != nil {
		return nil, "", false, err
	}
	ivars := NewObject()
	encodingName := ""
	hasEncoding := false
	for i := int32(0); i < n; i++ {
		name, err := l.parseSymbolValue()
		if err != nil {
			return nil, "", false, err
		}
		val, err := l.parseValue()
		if err != nil {
			return nil, "", false, err
		}
		switch name {
		case "E":
			hasEncoding = true
			if b, _ := val.(bool); b {
				encodingName = "UTF-8"
			} else {
				encodingName = "US-ASCII"
			}
		case "encoding":
			hasEncoding = true
			if s, ok := val.(string); ok {
				encodingName = s
			}
		default:
			ivars.Set(IVarKey(l.opts.instanceVarPrefix(), name), val)
		}
	}
	return ivars, encodingName, hasEncoding, nil
}

func (l *loader) parseObject() (Tree, error) {
	class, err := l.parseSymbolValue()
	if err != nil {
		return nil, err
	}
	o := Object(class, nil)
	slot := l.reserveSlot(o)
	ivars, _, _, err := l.parseIvarPairs()
	if err != nil {
		return nil, err
	}
	cloneInto(o, ivars)
	l.patchSlot(slot, o)
	return o, nil
}

func (l *loader) parseStruct() (Tree, error) {
	class, err := l.parseSymbolValue()
	if err != nil {
		return nil, err
	}
	o := Struct(class, nil)
	slot := l.reserveSlot(o)
	n, err := readSignedLong(l.c)
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < n; i++ {
		name, err := l.parseSymbolValue()
		if err != nil {
			return nil, err
		}
		val, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		o.Set(IVarKey(l.opts.instanceVarPrefix(), name), val)
	}
	l.patchSlot(slot, o)
	return o, nil
}

func (l *loader) parseClassOrModule(kind string) (Tree, error) {
	raw, err := readByteString(l.c)
	if err != nil {
		return nil, err
	}
	var v Tree
	if kind == TypeModule {
		v = ModuleRef(string(raw))
	} else {
		v = ClassRef(string(raw))
	}
	l.reserveSlot(v)
	return v, nil
}

// parseExtended handles a run of one or more stacked 'e' tags,
// collecting the wrapping module names outermost-first before parsing
// the innermost non-'e' value (spec.md section 4.1.1 "may stack").
func (l *loader) parseExtended() (Tree, error) {
	var modules []string
	for {
		name, err := l.parseSymbolValue()
		if err != nil {
			return nil, err
		}
		modules = append(modules, name)
		tag, ok := l.c.peekByte()
		if !ok {
			return nil, newLoadError(UnexpectedEOF, l.c.offset, "expected value after extended module %q", name)
		}
		if tag != tagExtended {
			break
		}
		l.c.offset++
	}
	inner, err := l.parseValue()
	if err != nil {
		return nil, err
	}
	if o, ok := inner.(*orderedjson.OrderedMap); ok {
		return WithExtends(o, modules), nil
	}
	l.log.Debugf("dropping extends marker for non-object value")
	return inner, nil
}

func (l *loader) parseUserClass() (Tree, error) {
	class, err := l.parseSymbolValue()
	if err != nil {
		return nil, err
	}
	inner, err := l.parseValue()
	if err != nil {
		return nil, err
	}
	l.log.Debugf("dropping user-class wrapper %q around %T", class, inner)
	return inner, nil
}

func (l *loader) parseUserDefined() (Tree, error) {
	class, err := l.parseSymbolValue()
	if err != nil {
		return nil, err
	}
	data, err := readByteString(l.c)
	if err != nil {
		return nil, err
	}
	v := UserDefined(class, data)
	l.reserveSlot(v)
	return v, nil
}

func (l *loader) parseUserMarshal() (Tree, error) {
	class, err := l.parseSymbolValue()
	if err != nil {
		return nil, err
	}
	o := UserMarshal(class, nil)
	slot := l.reserveSlot(o)
	inner, err := l.parseValue()
	if err != nil {
		return nil, err
	}
	o.Set(DataKey, inner)
	l.patchSlot(slot, o)
	return o, nil
}

// parseIvarWrapped handles the 'I' tag (spec.md section 4.1.3). A
// wrapped raw string is decoded according to any encoding ivar found;
// any other object-shaped value has its ivars merged in under the
// caller's ivar-prefix convention. Ivars on a string or on a value
// that is not object-shaped (an array, for instance) are dropped.
func (l *loader) parseIvarWrapped() (Tree, error) {
	tag, ok := l.c.peekByte()
	if !ok {
		return nil, newLoadError(UnexpectedEOF, l.c.offset, "expected a value after ivar wrapper")
	}
	if tag == tagString {
		l.c.offset++
		slot := l.reserveSlot(nil)
		raw, err := readByteString(l.c)
		if err != nil {
			return nil, err
		}
		_, encodingName, hasEncoding, err := l.parseIvarPairs()
		if err != nil {
			return nil, err
		}
		v, err := l.decodeStringBytes(raw, encodingName, hasEncoding)
		if err != nil {
			return nil, err
		}
		l.patchSlot(slot, v)
		return v, nil
	}

	inner, err := l.parseValue()
	if err != nil {
		return nil, err
	}
	ivars, _, _, err := l.parseIvarPairs()
	if err != nil {
		return nil, err
	}
	if o, ok := inner.(*orderedjson.OrderedMap); ok {
		cloneInto(o, ivars)
		return o, nil
	}
	if n := len(ivars.Keys()); n > 0 {
		l.log.Debugf("dropping %d ivar(s) on non-object wrapped value", n)
	}
	return inner, nil
}
