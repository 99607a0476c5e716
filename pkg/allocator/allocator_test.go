package allocator

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nameShape = regexp.MustCompile(`^[a-z0-9]{1,8}_[a-z0-9]+_[0-9a-f]{16}$`)

func TestAllocate_Shape(t *testing.T) {
	name := Allocate("ada.lovelace@example.com", "My-Shop DB")
	assert.True(t, nameShape.MatchString(name), "unexpected shape: %s", name)
	assert.True(t, strings.HasPrefix(name, "adalovel_myshopdb_"), "unexpected prefix: %s", name)
}

func TestAllocate_Unique(t *testing.T) {
	a := Allocate("owner@example.com", "shop")
	b := Allocate("owner@example.com", "shop")
	assert.NotEqual(t, a, b)
}

func TestAllocate_EmptyParts(t *testing.T) {
	name := Allocate("", "")
	// Only the random suffix remains.
	require.Regexp(t, `^[0-9a-f]{16}$`, name)

	name = Allocate("", "orders")
	require.Regexp(t, `^orders_[0-9a-f]{16}$`, name)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My-Shop DB", "myshopdb"},
		{"already", "already"},
		{"Ünïcode!", "ncode"},
		{"a_b-c.d", "abcd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), "input %q", tt.in)
	}
}
