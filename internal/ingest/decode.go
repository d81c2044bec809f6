package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

var parserPool fastjson.ParserPool

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// lineBreaks normalizes CRLF and lone CR to LF.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ReadInput reads a whole text payload. A leading UTF-8 byte order mark is
// dropped and invalid UTF-8 sequences are replaced with U+FFFD.
func ReadInput(r io.Reader) (string, error) {
	if r == nil {
		return "", ErrInputMissing
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInputMissing, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return string(sanitizeUTF8(data)), nil
}

// Decode splits raw on line breaks (LF, CRLF or CR) and parses every
// trimmed, non-empty line as one JSON object. Empty lines are dropped without
// an outcome; indices count kept lines only. A line that is not strict JSON
// becomes a failed outcome.
func Decode(raw string) []DecodeOutcome {
	p := parserPool.Get()
	defer parserPool.Put(p)

	raw = lineBreaks.Replace(raw)
	out := make([]DecodeOutcome, 0, strings.Count(raw, "\n")+1)
	for _, piece := range strings.Split(raw, "\n") {
		line := strings.TrimSpace(piece)
		if line == "" {
			continue
		}
		idx := len(out)

		// The parser accepts some invalid input, such as NaN or bad escapes.
		if err := fastjson.Validate(line); err != nil {
			out = append(out, DecodeOutcome{Index: idx, Line: line, Error: err.Error()})
			continue
		}
		v, err := p.Parse(line)
		if err != nil {
			out = append(out, DecodeOutcome{Index: idx, Line: line, Error: err.Error()})
			continue
		}
		out = append(out, decodeValue(idx, line, v))
	}
	return out
}

// DecodeJSON decodes a structured request body: a single JSON object or an
// array of them. Array elements that are not objects become failed outcomes.
func DecodeJSON(body []byte) ([]DecodeOutcome, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrInputMissing
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	body = sanitizeUTF8(body)
	if err := fastjson.ValidateBytes(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if v.Type() != fastjson.TypeArray {
		return []DecodeOutcome{decodeValue(0, v.String(), v)}, nil
	}

	items := v.GetArray()
	out := make([]DecodeOutcome, 0, len(items))
	for i, item := range items {
		out = append(out, decodeValue(i, item.String(), item))
	}
	return out, nil
}

func decodeValue(idx int, line string, v *fastjson.Value) DecodeOutcome {
	obj := v.GetObject()
	if obj == nil {
		return DecodeOutcome{
			Index: idx,
			Line:  line,
			Error: "expected a JSON object, got " + typeName(v.Type()),
		}
	}

	rec := make(Record, obj.Len())
	obj.Visit(func(key []byte, fv *fastjson.Value) {
		rec[string(key)] = toValue(fv)
	})
	return DecodeOutcome{Index: idx, Record: rec, Line: line}
}

// toValue copies a parsed value out of the parser's buffers.
func toValue(v *fastjson.Value) Value {
	switch v.Type() {
	case fastjson.TypeString:
		return StringValue(string(v.GetStringBytes()))
	case fastjson.TypeNumber:
		f, err := v.Float64()
		if err != nil {
			return RawValue(v.String())
		}
		return NumberValue(f)
	case fastjson.TypeTrue:
		return BoolValue(true)
	case fastjson.TypeFalse:
		return BoolValue(false)
	case fastjson.TypeObject, fastjson.TypeArray:
		return RawValue(v.String())
	default:
		return NullValue()
	}
}

func typeName(t fastjson.Type) string {
	switch t {
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return "boolean"
	default:
		return t.String()
	}
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
