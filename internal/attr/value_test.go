package attr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1953926", 1953926},
		{"1,953,926", 1953926},
		{` "58,805" `, 58805},
		{"12.5", 12.5},
		{"-3", -3},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValue_Suppressed(t *testing.T) {
	for _, in := range []string{"(D)", "(NA)", "(NM)", "(X)", "", "  "} {
		v, err := ParseValue(in)
		require.NoError(t, err, in)
		assert.True(t, math.IsNaN(v), in)
	}
}

func TestParseValue_Invalid(t *testing.T) {
	_, err := ParseValue("n/a please")
	assert.Error(t, err)
}
