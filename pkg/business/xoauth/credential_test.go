package xoauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredential_Stale(t *testing.T) {
	tests := []struct {
		name   string
		cred   *Credential
		buffer time.Duration
		want   bool
	}{
		{
			name:   "nil credential",
			cred:   nil,
			buffer: time.Minute,
			want:   true,
		},
		{
			name:   "empty access token",
			cred:   &Credential{ExpiresAt: time.Now().Add(time.Hour)},
			buffer: time.Minute,
			want:   true,
		},
		{
			name:   "plenty of lifetime left",
			cred:   &Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
			buffer: time.Minute,
			want:   false,
		},
		{
			name:   "inside safety buffer",
			cred:   &Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(30 * time.Second)},
			buffer: time.Minute,
			want:   true,
		},
		{
			name:   "already expired",
			cred:   &Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Second)},
			buffer: time.Minute,
			want:   true,
		},
		{
			name:   "zero buffer only checks expiry",
			cred:   &Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(10 * time.Second)},
			buffer: 0,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.Stale(tt.buffer))
		})
	}
}
