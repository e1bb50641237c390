package netstr

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.Encode(nil))
	require.NoError(t, enc.EncodeString("hello"))
	require.NoError(t, enc.EncodeKeyed(KeyText, []byte("hi")))
	require.NoError(t, enc.EncodeKeyed(KeyClose, nil))

	require.Equal(t, "0:,5:hello,3:thi,1:c,", buf.String())
}

func TestRoundTrip(t *testing.T) {
	f := func(payloads [][]byte) bool {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		for _, p := range payloads {
			if enc.Encode(p) != nil {
				return false
			}
		}

		dec := NewDecoder(&buf)
		for _, want := range payloads {
			got, err := dec.Decode()
			if err != nil || !bytes.Equal(got, want) {
				return false
			}
		}
		_, err := dec.Decode()
		return err == io.EOF
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestRoundTripKeyed(t *testing.T) {
	f := func(key byte, value []byte) bool {
		var buf bytes.Buffer
		if NewEncoder(&buf).EncodeKeyed(key, value) != nil {
			return false
		}
		gotKey, gotValue, err := NewDecoder(&buf).DecodeKeyed()
		return err == nil && gotKey == key && bytes.Equal(gotValue, value)
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing colon", "5hello,"},
		{"missing comma", "5:hello"},
		{"wrong terminator", "5:hello;"},
		{"truncated payload", "5:hel"},
		{"leading zero", "05:hello,"},
		{"empty length", ":hello,"},
		{"truncated length", "12"},
		{"whitespace in strict mode", " 5:hello,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(strings.NewReader(tt.input)).Decode()
			require.ErrorIs(t, err, ErrInvalidFormat)

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestDecodeKeyed_Empty(t *testing.T) {
	_, _, err := NewDecoder(strings.NewReader("0:,")).DecodeKeyed()
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecode_MaxLength(t *testing.T) {
	dec := NewDecoder(strings.NewReader("11:hello world,"), MaxLength(10))
	_, err := dec.Decode()
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDecode_Lenient(t *testing.T) {
	dec := NewDecoder(strings.NewReader("5:hello,\n 6:t hi \n,\r\n"), Lenient())

	got, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	key, value, err := dec.DecodeKeyed()
	require.NoError(t, err)
	require.Equal(t, KeyText, key)
	require.Equal(t, " hi \n", string(value))

	_, err = dec.Decode()
	require.Equal(t, io.EOF, err)
}

func TestDecode_LenientRejectsSpaceInsideLength(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("1 2:x,"), Lenient()).Decode()
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecoder_Offset(t *testing.T) {
	dec := NewDecoder(strings.NewReader("3:abc,2:xy"))
	_, err := dec.Decode()
	require.NoError(t, err)
	require.Equal(t, 6, dec.Offset())

	_, err = dec.Decode()
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, 10, fe.Offset)
}
