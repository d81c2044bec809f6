package ingest

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantLines  int
		wantFailed []int
	}{
		{name: "empty input", raw: "", wantLines: 0},
		{name: "only blank lines", raw: "\n  \n\t\r\n", wantLines: 0},
		{name: "single object", raw: `{"tagId":"T1","deviceId":"D1"}`, wantLines: 1},
		{
			name:       "blank lines are dropped before indexing",
			raw:        "\n{\"tagId\":\"T1\"}\n\n   \nnot valid json\n{\"tagId\":\"T3\"}\n",
			wantLines:  3,
			wantFailed: []int{1},
		},
		{
			name:      "CRLF line endings",
			raw:       "{\"a\":1}\r\n{\"b\":2}\r\n",
			wantLines: 2,
		},
		{
			name:      "lone CR line endings",
			raw:       "{\"a\":1}\r{\"b\":2}\r\r{\"c\":3}",
			wantLines: 3,
		},
		{
			name:       "mixed line endings",
			raw:        "{\"a\":1}\r\nbad\r{\"c\":3}\n",
			wantLines:  3,
			wantFailed: []int{1},
		},
		{
			name:       "non-object values fail",
			raw:        "[1,2]\n42\n\"str\"\ntrue\nnull",
			wantLines:  5,
			wantFailed: []int{0, 1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.raw)
			require.Len(t, got, tt.wantLines)

			var failed []int
			for i, o := range got {
				assert.Equal(t, i, o.Index, "indices count kept lines")
				if o.Failed() {
					failed = append(failed, o.Index)
					assert.NotEmpty(t, o.Error)
				}
			}
			assert.Equal(t, tt.wantFailed, failed)
		})
	}
}

func TestDecode_FailureCarriesTrimmedLine(t *testing.T) {
	got := Decode("   not valid json  \n")
	require.Len(t, got, 1)
	assert.True(t, got[0].Failed())
	assert.Equal(t, "not valid json", got[0].Line)
	assert.NotEmpty(t, got[0].Error)
}

func TestDecode_RejectsNonStrictJSON(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"invalid escape", `{"tagId":"a\qb","deviceId":"D"}`},
		{"NaN literal", `{"tagId":"T","deviceId":"D","latitude":NaN}`},
		{"Infinity literal", `{"tagId":"T","deviceId":"D","latitude":Infinity}`},
		{"raw control character in string", "{\"tagId\":\"a\x01b\",\"deviceId\":\"D\"}"},
		{"trailing comma", `{"tagId":"T","deviceId":"D",}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.line)
			require.Len(t, got, 1)
			assert.True(t, got[0].Failed())
			assert.Nil(t, got[0].Record)
			assert.Equal(t, tt.line, got[0].Line)
			assert.NotEmpty(t, got[0].Error)
		})
	}
}

func TestDecode_NonObjectMessage(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"[1,2]", "expected a JSON object, got array"},
		{"12.5", "expected a JSON object, got number"},
		{`"T1"`, "expected a JSON object, got string"},
		{"false", "expected a JSON object, got boolean"},
		{"null", "expected a JSON object, got null"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Decode(tt.line)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Error)
		})
	}
}

func TestDecode_ValueKinds(t *testing.T) {
	got := Decode(`{"s":"x","n":-3.5,"t":true,"f":false,"z":null,"o":{"a":1},"l":[1,"b"]}`)
	require.Len(t, got, 1)
	rec := got[0].Record
	require.NotNil(t, rec)

	s, ok := rec["s"].AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	n, ok := rec["n"].AsNumber()
	assert.True(t, ok)
	assert.Equal(t, -3.5, n)

	b, ok := rec["t"].AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = rec["f"].AsBool()
	assert.True(t, ok)
	assert.False(t, b)

	assert.True(t, rec["z"].IsNull())
	assert.Equal(t, KindRaw, rec["o"].Kind())
	assert.Equal(t, KindRaw, rec["l"].Kind())

	_, present := rec["missing"]
	assert.False(t, present)
}

func TestDecode_EmptyObjectIsDecoded(t *testing.T) {
	got := Decode("{}")
	require.Len(t, got, 1)
	assert.False(t, got[0].Failed())
	assert.Empty(t, got[0].Record)
}

func TestDecode_Deterministic(t *testing.T) {
	raw := "{\"tagId\":\"T1\"}\nbad\n\n[3]\n{\"deviceId\":\"D\",\"latitude\":1}"
	assert.Equal(t, Decode(raw), Decode(raw))
}

func TestReadInput(t *testing.T) {
	t.Run("nil reader is missing input", func(t *testing.T) {
		_, err := ReadInput(nil)
		assert.ErrorIs(t, err, ErrInputMissing)
	})

	t.Run("read error is missing input", func(t *testing.T) {
		_, err := ReadInput(iotest.ErrReader(errors.New("connection reset")))
		assert.ErrorIs(t, err, ErrInputMissing)
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("empty reader is empty input", func(t *testing.T) {
		got, err := ReadInput(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		got, err := ReadInput(strings.NewReader("\xEF\xBB\xBF{\"tagId\":\"T1\"}"))
		require.NoError(t, err)
		assert.Equal(t, `{"tagId":"T1"}`, got)
	})

	t.Run("replaces invalid UTF-8", func(t *testing.T) {
		got, err := ReadInput(strings.NewReader("a\xffb"))
		require.NoError(t, err)
		assert.Equal(t, "a\uFFFDb", got)
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Run("empty body is missing input", func(t *testing.T) {
		_, err := DecodeJSON(nil)
		assert.ErrorIs(t, err, ErrInputMissing)

		_, err = DecodeJSON([]byte("  \n "))
		assert.ErrorIs(t, err, ErrInputMissing)
	})

	t.Run("invalid JSON is malformed", func(t *testing.T) {
		_, err := DecodeJSON([]byte(`{"tagId":`))
		assert.ErrorIs(t, err, ErrMalformedBody)
	})

	t.Run("non-strict JSON is malformed", func(t *testing.T) {
		bodies := []string{
			`{"tagId":"a\qb","deviceId":"D"}`,
			`[{"tagId":"T","deviceId":"D","latitude":NaN}]`,
			"{\"tagId\":\"a\x01b\",\"deviceId\":\"D\"}",
		}
		for _, body := range bodies {
			_, err := DecodeJSON([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedBody, body)
		}
	})

	t.Run("single object", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`{"tagId":"T1","deviceId":"D1"}`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].Failed())
		tag, _ := got[0].Record["tagId"].AsString()
		assert.Equal(t, "T1", tag)
	})

	t.Run("array keeps positions and fails non-objects", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`[{"tagId":"T1"}, 7, {"tagId":"T3"}]`))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.False(t, got[0].Failed())
		assert.True(t, got[1].Failed())
		assert.Equal(t, 1, got[1].Index)
		assert.Equal(t, "7", got[1].Line)
		assert.Equal(t, "expected a JSON object, got number", got[1].Error)
		assert.Equal(t, 2, got[2].Index)
	})

	t.Run("empty array has no outcomes", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`[]`))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("top-level scalar is one failure", func(t *testing.T) {
		got, err := DecodeJSON([]byte(`"hello"`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Failed())
	})
}
