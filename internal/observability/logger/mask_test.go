package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskAuthorization(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty header", "", ""},
		{"bearer token keeps scheme", "Bearer rb_live_0123456789abcdef", "Bearer ****cdef"},
		{"lowercase scheme", "bearer rb_live_0123456789abcdef", "Bearer ****cdef"},
		{"raw token", "rb_live_0123456789abcdef", "****cdef"},
		{"short value fully masked", "abc", "****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskAuthorization(tt.value))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****cdef", MaskAPIKey("rb_live_0123456789abcdef"))
	assert.Equal(t, "****", MaskAPIKey("key"))
	assert.Equal(t, "", MaskAPIKey("  "))
}
