package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"   \t\n ", ""},
		{"Hello   World", "hello world"},
		{"  HELLO\tWORLD\n", "hello world"},
		{"Launch day!", "launch day!"},
		{"launch   DAY!", "launch day!"},
		{"Ünïcode Spaces", "ünïcode spaces"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeText(tc.in), "NormalizeText(%q)", tc.in)
	}
}

func TestText_DeterministicAndInsensitive(t *testing.T) {
	a := Text("hello world")
	b := Text("Hello   World")
	c := Text("HELLO WORLD")
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	assert.Equal(t, *a, *b)
	assert.Equal(t, *a, *c)
	assert.Len(t, *a, Size)

	// Same input twice.
	again := Text("hello world")
	require.NotNil(t, again)
	assert.Equal(t, *a, *again)

	sum := sha256.Sum256([]byte("hello world"))
	assert.Equal(t, hex.EncodeToString(sum[:]), *a)
}

func TestText_EmptyYieldsNil(t *testing.T) {
	assert.Nil(t, Text(""))
	assert.Nil(t, Text("  \n\t "))
}

func TestBytes(t *testing.T) {
	assert.Nil(t, Bytes(nil))
	assert.Nil(t, Bytes([]byte{}))

	png := []byte("\x89PNG\r\n\x1a\nfake")
	a := Bytes(png)
	b := Bytes(append([]byte(nil), png...))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *a, *b)
	assert.Len(t, *a, Size)

	other := Bytes([]byte("\x89PNG\r\n\x1a\nfakf"))
	require.NotNil(t, other)
	assert.NotEqual(t, *a, *other)
}

func TestBytes_NotNormalized(t *testing.T) {
	// Media is hashed raw: case differences matter.
	a := Bytes([]byte("ABC"))
	b := Bytes([]byte("abc"))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, *a, *b)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "-", Short(nil))
	fp := Text("x")
	require.NotNil(t, fp)
	assert.Equal(t, (*fp)[:12], Short(fp))
	s := "abc"
	assert.Equal(t, "abc", Short(&s))
}
