package wled

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr string
	}{
		{name: "private ip", host: "192.168.1.50"},
		{name: "loopback ip", host: "127.0.0.1"},
		{name: "link local ip", host: "169.254.10.20"},
		{name: "ten range ip", host: "10.0.0.5"},
		{name: "hostname", host: "wled-kitchen"},
		{name: "fqdn", host: "wled-kitchen.local"},
		{name: "dotted hostname", host: "wled.home.arpa"},

		{name: "empty", host: "", wantErr: "empty"},
		{name: "too long", host: strings.Repeat("a", 254), wantErr: "253"},
		{name: "embedded protocol", host: "http://192.168.1.50", wantErr: "protocol"},
		{name: "embedded protocol upper", host: "HTTP://device", wantErr: "protocol"},
		{name: "shell semicolon", host: "host;rm", wantErr: "invalid characters"},
		{name: "shell backtick", host: "host`id`", wantErr: "invalid characters"},
		{name: "shell dollar", host: "host$PATH", wantErr: "invalid characters"},
		{name: "whitespace", host: "host name", wantErr: "invalid characters"},
		{name: "path traversal", host: "../etc/passwd", wantErr: "path traversal"},
		{name: "public ip", host: "8.8.8.8", wantErr: "not a local network"},
		{name: "multicast ip", host: "224.0.0.1", wantErr: "multicast"},
		{name: "unspecified ip", host: "0.0.0.0", wantErr: "unspecified"},
		{name: "hostname bad chars", host: "wled_kitchen", wantErr: "invalid characters"},
		{name: "consecutive dots", host: "wled..local", wantErr: "consecutive dots"},
		{name: "leading dot", host: ".wled", wantErr: "dot"},
		{name: "trailing dot", host: "wled.", wantErr: "dot"},
		{name: "leading hyphen", host: "-wled", wantErr: "hyphen"},
		{name: "trailing hyphen", host: "wled-", wantErr: "hyphen"},
		{name: "long label", host: strings.Repeat("a", 64) + ".local", wantErr: "63"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
