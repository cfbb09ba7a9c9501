package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	a := Checksum([]byte(`{"nodes":[]}`))

	assert.Len(t, a, 64)
	assert.Equal(t, a, Checksum([]byte(`{"nodes":[]}`)))
	assert.NotEqual(t, a, Checksum([]byte(`{"nodes":[] }`)))
}

func TestCounter(t *testing.T) {
	assert.Equal(t, "", Counter(0))
	assert.Equal(t, "3", Counter(3))

	v, ok := ParseCounter("")
	assert.True(t, ok)
	assert.Equal(t, int64(0), v)

	v, ok = ParseCounter("12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), v)

	_, ok = ParseCounter("abc")
	assert.False(t, ok)
	_, ok = ParseCounter("-1")
	assert.False(t, ok)
}

func TestETag(t *testing.T) {
	assert.Equal(t, "", ETag(""))
	assert.Equal(t, `"abc"`, ETag("abc"))

	assert.Equal(t, "abc", ParseETag(`"abc"`))
	assert.Equal(t, "abc", ParseETag(`W/"abc"`))
	assert.Equal(t, "abc", ParseETag(` abc `))
}
