package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"3m", 90 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{"0d", 0},
		{"36h", 36 * time.Hour},
		{"90m0s", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "d", "7x", "-1h", "seven days"} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrInvalid, s)
	}
}
