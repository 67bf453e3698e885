// internal/utils/version.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseVersion splits a dotted-numeric label such as "v1.10" into its
// numeric components. A leading "v" or "V" is optional.
func ParseVersion(label string) ([]int, error) {
	s := strings.TrimSpace(label)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return nil, fmt.Errorf("invalid version %q", label)
	}

	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return nil, fmt.Errorf("invalid version %q", label)
		}
		out[i] = n
	}
	return out, nil
}

func IsValidVersion(label string) bool {
	_, err := ParseVersion(label)
	return err == nil
}

// CompareVersions returns -1, 0 or 1. Missing components count as zero, so
// "v1" and "v1.0" are equal.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}

	n := len(va)
	if len(vb) > n {
		n = len(vb)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(va) {
			x = va[i]
		}
		if i < len(vb) {
			y = vb[i]
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
	}
	return 0, nil
}

// NextMinorVersion bumps the second component: v1.9 -> v1.10, v2 -> v2.1.
func NextMinorVersion(label string) (string, error) {
	v, err := ParseVersion(label)
	if err != nil {
		return "", err
	}
	major, minor := v[0], 0
	if len(v) > 1 {
		minor = v[1]
	}
	return fmt.Sprintf("v%d.%d", major, minor+1), nil
}
