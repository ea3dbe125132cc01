package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://example.com", "http://example.com"},
		{"https://example.com/path?q=1", "https://example.com/path?q=1"},
		{"example.com", "http://example.com"},
		{"www.example.com/foo", "http://www.example.com/foo"},
		{"ftp://example.com", "http://ftp://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeURL(tt.input))
		})
	}
}

func TestMakeURL_IdentityOnSchemedInput(t *testing.T) {
	for _, in := range []string{"http://a.com", "https://b.org/", "https://c.net/x/y"} {
		assert.Equal(t, in, MakeURL(in))
		assert.Equal(t, in, MakeURL(MakeURL(in)))
	}
}

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "example.com"},
		{"http://example.com/path", "example.com/path"},
		{"example.com", "example.com"},
		{"https://", "https://"},
		{"xhttps://example.com", "xhttps://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripProtocol(tt.input))
		})
	}
}

func TestProtocol(t *testing.T) {
	assert.Equal(t, "https", Protocol("https://example.com/"))
	assert.Equal(t, "http", Protocol("http://example.com/"))
	assert.Equal(t, "", Protocol("/relative/path"))
	assert.Equal(t, "", Protocol(""))
}

func TestHostname(t *testing.T) {
	assert.Equal(t, "example.com", Hostname("example.com/path"))
	assert.Equal(t, "example.com", Hostname("https://example.com:8443/"))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid http URL",
			url:     "http://example.com/path",
			wantErr: false,
		},
		{
			name:    "valid https URL",
			url:     "https://example.com/path",
			wantErr: false,
		},
		{
			name:    "invalid scheme",
			url:     "ftp://example.com",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing scheme",
			url:     "example.com/path",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing host",
			url:     "http:///path",
			wantErr: true,
			errMsg:  "URL must have a host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
