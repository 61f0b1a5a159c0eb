// Package value renders typed datastore values to the canonical strings that
// appear in NETCONF reply XML, per the value-codec rules of RFC 6241's data
// model (string-like kinds verbatim, empty has no text, decimal64 honors
// fraction-digits, integers render without leading zeros).
package value

import "strconv"

// Kind discriminates the YANG built-in type family a Value belongs to.
type Kind int

const (
	KindString Kind = iota
	KindBinary
	KindBits
	KindEnum
	KindIdentityref
	KindInstanceID
	KindLeafref
	KindEmpty
	KindBoolean
	KindDecimal64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
)

// stringLike reports whether a kind is rendered by returning its own stored
// string verbatim (RFC 6241 types whose lexical and canonical form coincide).
func (k Kind) stringLike() bool {
	switch k {
	case KindString, KindBinary, KindBits, KindEnum, KindIdentityref, KindInstanceID, KindLeafref:
		return true
	default:
		return false
	}
}

// Value is a typed datastore value together with the XPath it was read from
// or is about to be written to. The XPath is carried so the decimal64 case
// can resolve fraction-digits from the schema node at that path.
type Value struct {
	Kind  Kind
	XPath string

	Str  string // string-like kinds
	Bool bool
	// Int/Uint carry integer kinds. For KindDecimal64, Int carries the
	// value's unscaled mantissa (i.e. the integer you get by stripping the
	// decimal point), per RFC 6020 decimal64 encoding.
	Int  int64
	Uint uint64
}

// FractionDigitsResolver resolves the fraction-digits declared by the schema
// node at a value's XPath. The schema registry (pkg/schema) implements
// this; tests may supply a trivial stub.
type FractionDigitsResolver interface {
	FractionDigits(xpath string) (uint8, bool)
}

// Render returns the canonical string form of v, appending into scratch for
// numeric kinds (scratch's returned slice may alias its backing array; the
// caller owns the lifetime); decimal64's sign-and-digits composition is
// built in scratch too. String-like kinds return a copy of v.Str's bytes.
//
// empty returns a zero-length slice: the node carries no text content.
func Render(v Value, scratch []byte, resolver FractionDigitsResolver) []byte {
	switch {
	case v.Kind.stringLike():
		return []byte(v.Str)
	case v.Kind == KindEmpty:
		return scratch[:0]
	case v.Kind == KindBoolean:
		if v.Bool {
			return append(scratch[:0], "true"...)
		}
		return append(scratch[:0], "false"...)
	case v.Kind == KindDecimal64:
		digits := uint8(0)
		if resolver != nil {
			if fd, ok := resolver.FractionDigits(v.XPath); ok {
				digits = fd
			}
		}
		return renderDecimal64(v.Int, digits, scratch)
	case isUnsigned(v.Kind):
		return strconv.AppendUint(scratch[:0], v.Uint, 10)
	default:
		return strconv.AppendInt(scratch[:0], v.Int, 10)
	}
}

func isUnsigned(k Kind) bool {
	switch k {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	default:
		return false
	}
}

// renderDecimal64 formats mantissa as a decimal64 value with exactly digits
// fraction digits, e.g. mantissa=1234, digits=2 -> "12.34"; mantissa=-5,
// digits=2 -> "-0.05". digits=0 renders the bare integer with no dot.
func renderDecimal64(mantissa int64, digits uint8, scratch []byte) []byte {
	scratch = scratch[:0]
	if digits == 0 {
		return strconv.AppendInt(scratch, mantissa, 10)
	}

	neg := mantissa < 0
	u := uint64(mantissa)
	if neg {
		u = uint64(-mantissa)
	}

	buf := strconv.AppendUint(nil, u, 10)
	for len(buf) <= int(digits) {
		buf = append([]byte{'0'}, buf...)
	}

	intPart := buf[:len(buf)-int(digits)]
	fracPart := buf[len(buf)-int(digits):]

	if neg {
		scratch = append(scratch, '-')
	}
	scratch = append(scratch, intPart...)
	scratch = append(scratch, '.')
	scratch = append(scratch, fracPart...)
	return scratch
}

// ParseDecimal64 is the inverse of renderDecimal64: it recovers the unscaled
// mantissa from a canonical decimal64 string given the schema's
// fraction-digits, so that Render(Parse(s)) round-trips exactly (spec
// invariant: rendering a decimal64 with n fraction-digits then re-parsing
// yields the same value).
func ParseDecimal64(s string, digits uint8) (int64, bool) {
	neg := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	dot := -1
	for i, c := range s {
		if c == '.' {
			dot = i
			break
		}
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	var intPart, fracPart string
	if dot == -1 {
		intPart, fracPart = s, ""
	} else {
		intPart, fracPart = s[:dot], s[dot+1:]
		for _, c := range fracPart {
			if c < '0' || c > '9' {
				return 0, false
			}
		}
	}
	if len(fracPart) > int(digits) {
		return 0, false
	}
	for len(fracPart) < int(digits) {
		fracPart += "0"
	}

	combined := intPart + fracPart
	if combined == "" {
		combined = "0"
	}
	mantissa, err := strconv.ParseUint(combined, 10, 63)
	if err != nil {
		return 0, false
	}
	if neg {
		return -int64(mantissa), true
	}
	return int64(mantissa), true
}
