package bencode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func evalMessage() Value {
	return Dict(map[string]Value{
		"op":      String("eval"),
		"code":    String("(+ 1 2)"),
		"id":      String("1"),
		"session": String("abc"),
		"line":    Int(12),
	})
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{name: "string", in: String("clone"), want: "5:clone"},
		{name: "empty string", in: String(""), want: "0:"},
		{name: "int", in: Int(42), want: "i42e"},
		{name: "negative int", in: Int(-7), want: "i-7e"},
		{name: "list", in: List(String("done"), String("error")), want: "l4:done5:errore"},
		{
			name: "dict keys sorted",
			in:   Dict(map[string]Value{"op": String("clone"), "id": String("1")}),
			want: "d2:id1:12:op5:clonee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Encode(tt.in)))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	in := evalMessage()

	var d Decoder
	d.Feed(Encode(in))
	out, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, in, *out)
	assert.Equal(t, 0, d.Buffered())
}

func TestNextOnEmptyBuffer(t *testing.T) {
	var d Decoder
	v, err := d.Next()
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestByteAtATimeResumability(t *testing.T) {
	encoded := Encode(evalMessage())

	// Feeding the message one byte at a time must yield exactly one value,
	// only after the final byte, identical to decoding it in one shot.
	var whole Decoder
	whole.Feed(encoded)
	want, err := whole.Next()
	require.NoError(t, err)

	var d Decoder
	var got *Value
	for i, b := range encoded {
		d.Feed([]byte{b})
		v, err := d.Next()
		require.NoError(t, err)
		if i < len(encoded)-1 {
			require.Nil(t, v, "value complete before final byte %d", i)
		} else {
			got = v
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, *want, *got)
}

func TestConsumesExactlyOneValue(t *testing.T) {
	var d Decoder
	d.Feed([]byte("d2:op5:clonee" + "d6:status" + "l4:donee" + "e" + "3:par"))

	first, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "clone", first.StringAt("op"))

	second, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, second)
	status, ok := second.Get("status")
	require.True(t, ok)
	assert.Equal(t, []string{"done"}, status.Strings())

	// Trailing partial string stays buffered.
	third, err := d.Next()
	require.NoError(t, err)
	assert.Nil(t, third)
	assert.Equal(t, len("3:par"), d.Buffered())

	d.Feed([]byte("ty"))
	third, err = d.Next()
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, "party", third.Str)
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "unknown prefix", in: "x4:oops"},
		{name: "non-string dict key", in: "di1e5:valuee"},
		{name: "bad integer", in: "i4x2e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			d.Feed([]byte(tt.in))
			_, err := d.Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestStringAtAndStrings(t *testing.T) {
	v := Dict(map[string]Value{
		"value":  String("3"),
		"status": List(String("done")),
	})
	assert.Equal(t, "3", v.StringAt("value"))
	assert.Equal(t, "", v.StringAt("missing"))
	status, _ := v.Get("status")
	assert.Equal(t, []string{"done"}, status.Strings())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
