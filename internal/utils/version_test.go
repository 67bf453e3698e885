// internal/utils/version_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"v1.10", "v1.9", 1},
		{"v1.9", "v1.10", -1},
		{"v2.0", "v1.99", 1},
		{"v1", "v1.0", 0},
		{"1.2.3", "v1.2.3", 0},
		{"V3.1", "v3.0.9", 1},
	}

	for _, tc := range cases {
		got, err := CompareVersions(tc.a, tc.b)
		require.NoError(t, err, "%s vs %s", tc.a, tc.b)
		assert.Equal(t, tc.want, got, "%s vs %s", tc.a, tc.b)
	}
}

func TestCompareVersionsRejectsMalformedLabels(t *testing.T) {
	for _, label := range []string{"", "v", "v1.a", "v1..2", "v-1.0", "v+1.0", "release"} {
		_, err := CompareVersions(label, "v1.0")
		assert.Error(t, err, label)
		assert.False(t, IsValidVersion(label), label)
	}
}

func TestNextMinorVersion(t *testing.T) {
	next, err := NextMinorVersion("v1.9")
	require.NoError(t, err)
	assert.Equal(t, "v1.10", next)

	next, err = NextMinorVersion("v2")
	require.NoError(t, err)
	assert.Equal(t, "v2.1", next)

	_, err = NextMinorVersion("next")
	assert.Error(t, err)
}
