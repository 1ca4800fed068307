package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cn", Chinese},
		{"CN", Chinese},
		{"zh", Chinese},
		{"zh_CN.UTF-8", Chinese},
		{"zh-Hant-TW", Chinese},
		{"en_US.UTF-8", English},
		{"en", English},
		{"fr_FR", English},
		{"C", English},
		{"", English},
		{"not a locale!", English},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestCurrent(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "zh_CN.UTF-8")
	assert.Equal(t, Chinese, Current(""))
	assert.Equal(t, English, Current("en"))

	t.Setenv("LANG", "")
	assert.Equal(t, English, Current(""))
}

func TestToggle(t *testing.T) {
	assert.Equal(t, English, Toggle(Chinese))
	assert.Equal(t, Chinese, Toggle(English))
	assert.True(t, IsSupported("cn"))
	assert.False(t, IsSupported("fr"))
}
