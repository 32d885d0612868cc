package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_TokenLocation(t *testing.T) {
	tests := []struct {
		name       string
		offset     string
		wantOffset int
		wantErr    bool
	}{
		{name: "ist_default", offset: "+05:30", wantOffset: 5*3600 + 30*60},
		{name: "negative_offset", offset: "-04:00", wantOffset: -4 * 3600},
		{name: "hours_only", offset: "2", wantOffset: 2 * 3600},
		{name: "garbage", offset: "half past five", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{TokenTZOffset: tt.offset}

			loc, err := cfg.TokenLocation()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			_, offset := time.Now().In(loc).Zone()
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
