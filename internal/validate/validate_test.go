package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginID(t *testing.T) {
	for _, id := range []string{"calculator", "my-plugin", "p2"} {
		assert.NoError(t, PluginID(id), id)
	}
	for _, id := range []string{"", ".", "..", "../etc", "a/b", `a\b`, "a\x00b"} {
		assert.ErrorIs(t, PluginID(id), ErrInvalidPluginID, "%q", id)
	}
}

func TestViewPath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"greeting/form", "greeting/form", false},
		{"/greeting/form/", "greeting/form", false},
		{"greeting//form", "greeting/form", false},
		{`greeting\form`, "greeting/form", false},
		{"docs/browse/section", "docs/browse/section", false},

		{"", "", true},
		{"greeting", "", true},
		{"greeting/", "", true},
		{"greeting/../other/form", "", true},
		{"../greeting/form", "", true},
		{"greet\x00ing/form", "", true},
		{"a/" + strings.Repeat("x", MaxViewPath), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ViewPath(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidView)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
