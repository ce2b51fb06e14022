package license

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"licensor/pkg/contracts/domain"
)

func TestDenied(t *testing.T) {
	bl := &domain.Blacklist{
		DiscordIDs: []string{"banned-user"},
		IPs:        []string{"10.0.0.66"},
		HWIDs:      []string{"bad-hwid"},
	}

	tests := []struct {
		name     string
		identity string
		ip       string
		hwid     string
		want     bool
	}{
		{"clean identity", "user-a", "1.2.3.4", "hw-1", false},
		{"denied identity", "banned-user", "", "", true},
		{"denied identity overrides clean evidence", "banned-user", "1.2.3.4", "hw-1", true},
		{"denied ip", "user-a", "10.0.0.66", "", true},
		{"denied hwid", "user-a", "", "bad-hwid", true},
		{"empty evidence never matches deny entries", "user-a", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Denied(bl, tt.identity, tt.ip, tt.hwid))
		})
	}
}

func TestDeniedNilAndEmptyBlacklist(t *testing.T) {
	assert.False(t, Denied(nil, "anyone", "1.2.3.4", "hw"))
	assert.False(t, Denied(&domain.Blacklist{}, "anyone", "1.2.3.4", "hw"))
}
