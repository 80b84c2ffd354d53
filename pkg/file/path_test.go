package file

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFilename_UsesURLTail(t *testing.T) {
	assert.Equal(t, "data.csv", SafeFilename("https://example.com/files/data.csv"))
	assert.Equal(t, "report.pdf", SafeFilename("https://example.com/a/b/report.pdf?token=x"))
}

func TestSafeFilename_HashFallback(t *testing.T) {
	got := SafeFilename("https://example.com/")
	require.True(t, strings.HasPrefix(got, "file_"))
	assert.Len(t, got, len("file_")+12)

	// Same URL hashes to the same name.
	assert.Equal(t, got, SafeFilename("https://example.com/"))
	// Different URLs do not collide on the fallback path.
	assert.NotEqual(t, got, SafeFilename("https://other.example.com/"))
}
