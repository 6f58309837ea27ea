package marshal

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	orderedjson "github.com/nspcc-dev/go-ordered-json"
)

// dumper walks a value tree and emits the corresponding Marshal byte
// sequence (spec.md section 4.2), the mirror image of loader.
type dumper struct {
	e        *emitter
	symbols  map[string]int32
	visiting map[uintptr]bool
	opts     Options
	log      *logHelper
}

// Dump encodes a value tree into a Marshal byte stream (spec.md
// section 6.3).
func Dump(v Tree, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)
	d := &dumper{
		e:        newEmitter(),
		symbols:  make(map[string]int32),
		visiting: make(map[uintptr]bool),
		opts:     o,
		log:      o.helper(),
	}
	d.e.writeByte(acceptedVersions[0])
	d.e.writeByte(acceptedVersions[1])
	if err := d.emitValue(v, "$"); err != nil {
		return nil, err
	}
	return d.e.bytes(), nil
}

func (d *dumper) emitValue(v Tree, path string) error {
	switch t := v.(type) {
	case nil:
		d.e.writeByte(tagNil)
		return nil
	case bool:
		if t {
			d.e.writeByte(tagTrue)
		} else {
			d.e.writeByte(tagFalse)
		}
		return nil
	case int:
		return d.emitInteger(int64(t), path)
	case int32:
		return d.emitInteger(int64(t), path)
	case int64:
		return d.emitInteger(t, path)
	case float64:
		d.e.writeByte(tagFloat)
		writeFloatToken(d.e, t)
		return nil
	case json.Number:
		return d.emitJSONNumber(t, path)
	case string:
		return d.emitString(t, path)
	case []Tree:
		return d.emitArray(t, path)
	case *orderedjson.OrderedMap:
		return d.emitObject(t, path)
	default:
		return newDumpError(MalformedSentinel, path, "unsupported value-tree node of type %T", v)
	}
}

func (d *dumper) emitInteger(n int64, path string) error {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		d.e.writeByte(tagFixnum)
		writeSignedLong(d.e, int32(n))
		return nil
	}
	return d.emitBigIntValue(big.NewInt(n), path)
}

// emitJSONNumber handles a json.Number literal produced by a decoder
// configured with UseNumber (as cmd/marshaldump's dump subcommand
// does, to avoid losing integer precision through float64). A literal
// with no '.', 'e' or 'E' is a whole number: emitted as a fixnum or
// bignum depending on magnitude. Anything else is a float.
func (d *dumper) emitJSONNumber(n json.Number, path string) error {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return d.emitInteger(i, path)
		}
		if bi, ok := new(big.Int).SetString(s, 10); ok {
			return d.emitBigIntValue(bi, path)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return newDumpError(BadFloat, path, "malformed JSON number %q", s)
	}
	d.e.writeByte(tagFloat)
	writeFloatToken(d.e, f)
	return nil
}

func (d *dumper) emitString(s string, path string) error {
	if name, ok := IsSymbol(s); ok {
		d.emitSymbol(name)
		return nil
	}
	d.e.writeByte(tagIvar)
	d.e.writeByte(tagString)
	writeByteString(d.e, []byte(s))
	writeSignedLong(d.e, 1)
	d.emitSymbol("E")
	d.e.writeByte(tagTrue)
	return nil
}

// emitSymbol implements spec.md section 4.2.2: first emission of a
// name writes tag ':' and records its slot; later emissions write
// tag ';' with the recorded slot index.
func (d *dumper) emitSymbol(name string) {
	if slot, ok := d.symbols[name]; ok {
		d.e.writeByte(tagSymlink)
		writeSignedLong(d.e, slot)
		return
	}
	slot := int32(len(d.symbols))
	d.symbols[name] = slot
	d.e.writeByte(tagSymbol)
	writeByteString(d.e, []byte(name))
}

func (d *dumper) emitArray(arr []Tree, path string) error {
	if err := d.enterCycleGuard(arr, path); err != nil {
		return err
	}
	defer d.leaveCycleGuard(arr)

	d.e.writeByte(tagArray)
	writeSignedLong(d.e, int32(len(arr)))
	for i, elem := range arr {
		if err := d.emitValue(elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// identityOf returns a stable address-based key for a composite
// value-tree node, used to detect reference cycles (spec.md section
// 9). Slices aren't comparable in Go, so the underlying array's
// address stands in for slice identity.
func identityOf(v interface{}) uintptr {
	switch t := v.(type) {
	case *orderedjson.OrderedMap:
		return reflect.ValueOf(t).Pointer()
	case []Tree:
		if len(t) == 0 {
			return 0
		}
		return reflect.ValueOf(t).Pointer()
	default:
		return 0
	}
}

func (d *dumper) enterCycleGuard(v interface{}, path string) error {
	id := identityOf(v)
	if id == 0 {
		return nil
	}
	if d.visiting[id] {
		return &ErrCyclicValue{Path: path}
	}
	d.visiting[id] = true
	return nil
}

func (d *dumper) leaveCycleGuard(v interface{}) {
	id := identityOf(v)
	if id != 0 {
		delete(d.visiting, id)
	}
}

// emitObject classifies a *orderedjson.OrderedMap node by its __type
// discriminator (spec.md section 4.2.1) and dispatches to the
// matching emitter.
func (d *dumper) emitObject(o *orderedjson.OrderedMap, path string) error {
	if err := d.enterCycleGuard(o, path); err != nil {
		return err
	}
	defer d.leaveCycleGuard(o)

	typ, _ := o.Get(TypeKey)
	switch typ {
	case TypeBigInt:
		return d.emitBigInt(o, path)
	case TypeBytes:
		return d.emitBytesObject(o, path)
	case TypeRegexp:
		return d.emitRegexpObject(o, path)
	case TypeFloat:
		return d.emitNonFiniteFloat(o, path)
	case TypeObject:
		return d.emitInstance(o, tagObject, path)
	case TypeStruct:
		return d.emitInstance(o, tagStruct, path)
	case TypeClass:
		return d.emitClassOrModuleRef(o, tagClass, path)
	case TypeModule:
		return d.emitClassOrModuleRef(o, tagModule, path)
	case TypeUserDef:
		return d.emitUserDefined(o, path)
	case TypeUserMarshal:
		return d.emitUserMarshal(o, path)
	default:
		return d.emitHash(o, path)
	}
}

func (d *dumper) emitBigInt(o *orderedjson.OrderedMap, path string) error {
	raw, _ := o.Get("value")
	s, ok := raw.(string)
	if !ok {
		return newDumpError(MalformedSentinel, path, "%s node missing decimal \"value\" string", DescribeKind(o))
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return newDumpError(BadBigInt, path, "malformed bigint decimal %q", s)
	}
	return d.emitBigIntValue(n, path)
}

func (d *dumper) emitBigIntValue(n *big.Int, path string) error {
	sign := byte('+')
	mag := new(big.Int).Abs(n)
	if n.Sign() < 0 {
		sign = '-'
	}
	be := mag.Bytes()
	le := make([]byte, len(be))
	for i, c := range be {
		le[len(be)-1-i] = c
	}
	if len(le)%2 != 0 {
		le = append(le, 0)
	}
	d.e.writeByte(tagBignum)
	d.e.writeByte(sign)
	writeSignedLong(d.e, int32(len(le)/2))
	d.e.writeBytes(le)
	return nil
}

func (d *dumper) emitBytesObject(o *orderedjson.OrderedMap, path string) error {
	raw, _ := o.Get("data")
	b := toByteSlice(raw)
	d.e.writeByte(tagIvar)
	d.e.writeByte(tagString)
	writeByteString(d.e, b)
	writeSignedLong(d.e, 0)
	return nil
}

func (d *dumper) emitNonFiniteFloat(o *orderedjson.OrderedMap, path string) error {
	token, ok := AsNonFiniteFloat(o)
	if !ok {
		return newDumpError(MalformedSentinel, path, "float node missing \"value\" token")
	}
	var f float64
	switch token {
	case "inf":
		f = math.Inf(1)
	case "-inf":
		f = math.Inf(-1)
	case "nan":
		f = math.NaN()
	default:
		return newDumpError(BadFloat, path, "unrecognized non-finite float token %q", token)
	}
	d.e.writeByte(tagFloat)
	writeFloatToken(d.e, f)
	return nil
}

func (d *dumper) emitRegexpObject(o *orderedjson.OrderedMap, path string) error {
	expr, _ := o.Get("expression")
	flags, _ := o.Get("flags")
	exprStr, _ := expr.(string)
	flagsStr, _ := flags.(string)
	d.e.writeByte(tagRegexp)
	writeByteString(d.e, []byte(exprStr))
	d.e.writeByte(regexpFlagsToMask(flagsStr))
	return nil
}

func regexpFlagsToMask(flags string) byte {
	var mask byte
	for _, r := range flags {
		switch r {
		case 'i':
			mask |= 0x01
		case 'x':
			mask |= 0x02
		case 'm':
			mask |= 0x04
		}
	}
	return mask
}

// reservedObjectKeys are never re-emitted as an ivar of their own;
// they carry structural metadata instead (spec.md section 4.2.3).
// emitHash likewise skips __default and __extends as pair keys.
var reservedObjectKeys = map[string]bool{
	ClassKey:   true,
	TypeKey:    true,
	ExtendsKey: true,
	DefaultKey: true,
	DataKey:    true,
}

func (d *dumper) emitInstance(o *orderedjson.OrderedMap, tag byte, path string) error {
	extends, hasExtends := o.Get(ExtendsKey)
	if hasExtends {
		for _, name := range toStringSlice(extends) {
			unprefixed, _ := IsSymbol(name)
			d.e.writeByte(tagExtended)
			d.emitSymbol(unprefixed)
		}
	}

	class, _ := o.Get(ClassKey)
	className, _ := class.(string)
	unprefixedClass, _ := IsSymbol(className)

	d.e.writeByte(tag)
	d.emitSymbol(unprefixedClass)

	keys := o.Keys()
	var ivarKeys []string
	for _, k := range keys {
		if !reservedObjectKeys[k] {
			ivarKeys = append(ivarKeys, k)
		}
	}
	writeSignedLong(d.e, int32(len(ivarKeys)))
	for _, k := range ivarKeys {
		v, _ := o.Get(k)
		name, ok := SourceIVarName(d.opts.instanceVarPrefix(), k)
		if !ok {
			name = "@" + k
		}
		d.emitSymbol(name)
		if err := d.emitValue(v, path+"."+k); err != nil {
			return err
		}
	}
	return nil
}

func (d *dumper) emitClassOrModuleRef(o *orderedjson.OrderedMap, tag byte, path string) error {
	class, _ := o.Get(ClassKey)
	className, _ := class.(string)
	unprefixed, _ := IsSymbol(className)
	d.e.writeByte(tag)
	writeByteString(d.e, []byte(unprefixed))
	return nil
}

func (d *dumper) emitUserDefined(o *orderedjson.OrderedMap, path string) error {
	class, _ := o.Get(ClassKey)
	className, _ := class.(string)
	unprefixed, _ := IsSymbol(className)
	data, _ := o.Get(DataKey)
	raw := toByteSlice(data)
	d.e.writeByte(tagUserDef)
	d.emitSymbol(unprefixed)
	writeByteString(d.e, raw)
	return nil
}

func (d *dumper) emitUserMarshal(o *orderedjson.OrderedMap, path string) error {
	class, _ := o.Get(ClassKey)
	className, _ := class.(string)
	unprefixed, _ := IsSymbol(className)
	inner, _ := o.Get(DataKey)
	d.e.writeByte(tagUserMarsh)
	d.emitSymbol(unprefixed)
	return d.emitValue(inner, path+"."+DataKey)
}

func (d *dumper) emitHash(o *orderedjson.OrderedMap, path string) error {
	def, hasDefault := o.Get(DefaultKey)
	keys := o.Keys()
	var pairKeys []string
	for _, k := range keys {
		if k != DefaultKey && k != ExtendsKey {
			pairKeys = append(pairKeys, k)
		}
	}

	if extends, ok := o.Get(ExtendsKey); ok {
		for _, name := range toStringSlice(extends) {
			unprefixed, _ := IsSymbol(name)
			d.e.writeByte(tagExtended)
			d.emitSymbol(unprefixed)
		}
	}
	if hasDefault {
		d.e.writeByte(tagHashDefalt)
	} else {
		d.e.writeByte(tagHash)
	}
	writeSignedLong(d.e, int32(len(pairKeys)))
	for _, k := range pairKeys {
		v, _ := o.Get(k)
		if err := d.emitHashKey(k, path); err != nil {
			return err
		}
		if err := d.emitValue(v, path+"["+k+"]"); err != nil {
			return err
		}
	}
	if hasDefault {
		if err := d.emitValue(def, path+".__default"); err != nil {
			return err
		}
	}
	return nil
}

// emitHashKey reconstructs the original key value from its typed
// prefix (spec.md section 4.2.3); anything unrecognized is emitted
// verbatim as a UTF-8 string.
func (d *dumper) emitHashKey(k string, path string) error {
	switch {
	case len(k) >= len(IntegerKeyPrefix) && k[:len(IntegerKeyPrefix)] == IntegerKeyPrefix:
		n, err := strconv.ParseInt(k[len(IntegerKeyPrefix):], 10, 64)
		if err != nil {
			return newDumpError(BadInteger, path, "malformed integer hash key %q", k)
		}
		return d.emitInteger(n, path)
	case len(k) >= len(FloatKeyPrefix) && k[:len(FloatKeyPrefix)] == FloatKeyPrefix:
		f, err := parseFloatKey(k[len(FloatKeyPrefix):])
		if err != nil {
			return newDumpError(BadFloat, path, "malformed float hash key %q", k)
		}
		d.e.writeByte(tagFloat)
		writeFloatToken(d.e, f)
		return nil
	case len(k) >= len(ObjectKeyPrefix) && k[:len(ObjectKeyPrefix)] == ObjectKeyPrefix:
		// Re-emitting the original complex key is not representable
		// without the load-time object table; emit its positional
		// marker back as a plain string, the closest lossless fallback.
		d.log.Debugf("emitting object-shaped hash key %q as a string (dump cannot recover the original node)", k)
		return d.emitString(k, path)
	default:
		return d.emitString(k, path)
	}
}

func toStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, len(s))
		for i, e := range s {
			out[i], _ = e.(string)
		}
		return out
	default:
		return nil
	}
}

func parseFloatKey(s string) (float64, error) {
	switch s {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	default:
		return strconv.ParseFloat(s, 64)
	}
}
