package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Simple", "alice", false},
		{"Allowed Symbols", "a.l+i-c_e@x", false},
		{"Exactly Max Length", strings.Repeat("a", 150), false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", 151), true},
		{"Padded", " alice ", true},
		{"Inner Space", "al ice", true},
		{"Slash", "al/ice", true},
		{"Unicode", "ålice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
