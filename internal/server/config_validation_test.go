package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv clears every GALLERY_* variable the validator reads, then applies vars.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range []string{
		"GALLERY_ADDR", "GALLERY_SESSION_TTL", "GALLERY_COOKIE_SECURE", "GALLERY_STORE",
		"GALLERY_LOCKOUT_ATTEMPTS", "GALLERY_LOCKOUT_DURATION", "GALLERY_TRUST_PROXY",
		"GALLERY_S3_ENDPOINT", "GALLERY_S3_ACCESS_KEY", "GALLERY_S3_SECRET_KEY", "GALLERY_BUCKET",
		"GALLERY_PUBLIC_BASE_URL", "GALLERY_PREFIX", "GALLERY_URL_TTL", "GALLERY_LIST_MAX",
		"GALLERY_MAX_UPLOAD_BYTES", "GALLERY_RATE_API", "GALLERY_RATE_UPLOAD", "GALLERY_RATE_AUTH",
		"GALLERY_LOG_FORMAT", "GALLERY_LOG_LEVEL", "GALLERY_ENV",
	} {
		t.Setenv(k, "")
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestValidateAllConfiguration(t *testing.T) {
	minio := map[string]string{
		"GALLERY_S3_ENDPOINT":   "localhost:9000",
		"GALLERY_S3_ACCESS_KEY": "minio",
		"GALLERY_S3_SECRET_KEY": "minio123",
		"GALLERY_BUCKET":        "gallery",
	}

	tests := []struct {
		name    string
		vars    map[string]string
		wantErr []string
	}{
		{name: "memory backend needs nothing", vars: map[string]string{"GALLERY_STORE": "memory"}},
		{name: "complete minio", vars: minio},
		{
			name:    "minio missing credentials",
			vars:    map[string]string{"GALLERY_STORE": "minio", "GALLERY_BUCKET": "gallery"},
			wantErr: []string{"GALLERY_S3_ENDPOINT", "GALLERY_S3_ACCESS_KEY", "GALLERY_S3_SECRET_KEY"},
		},
		{
			name:    "s3 with half credentials",
			vars:    map[string]string{"GALLERY_STORE": "s3", "GALLERY_BUCKET": "b", "GALLERY_S3_ACCESS_KEY": "k"},
			wantErr: []string{"must be set together"},
		},
		{
			name:    "unknown backend",
			vars:    map[string]string{"GALLERY_STORE": "ftp"},
			wantErr: []string{"GALLERY_STORE"},
		},
		{
			name: "bad values",
			vars: map[string]string{
				"GALLERY_STORE":            "memory",
				"GALLERY_ADDR":             "3000",
				"GALLERY_SESSION_TTL":      "forever",
				"GALLERY_COOKIE_SECURE":    "maybe",
				"GALLERY_TRUST_PROXY":      "sometimes",
				"GALLERY_PREFIX":           "uploads",
				"GALLERY_PUBLIC_BASE_URL":  "ftp://cdn",
				"GALLERY_LIST_MAX":         "-1",
				"GALLERY_MAX_UPLOAD_BYTES": "lots",
				"GALLERY_RATE_AUTH":        "ten",
				"GALLERY_LOG_LEVEL":        "loud",
			},
			wantErr: []string{
				"GALLERY_ADDR", "GALLERY_SESSION_TTL", "GALLERY_COOKIE_SECURE", "GALLERY_TRUST_PROXY", "GALLERY_PREFIX",
				"GALLERY_PUBLIC_BASE_URL", "GALLERY_LIST_MAX", "GALLERY_MAX_UPLOAD_BYTES",
				"GALLERY_RATE_AUTH", "GALLERY_LOG_LEVEL",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.vars)
			err := ValidateAllConfiguration()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfigValidatorListenAddr(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{":3000", true},
		{"0.0.0.0:8080", true},
		{"localhost", false},
		{":http", false},
		{":70000", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := NewConfigValidator()
			v.ValidateListenAddr("ADDR", tt.value)
			assert.Equal(t, !tt.ok, v.HasErrors())
		})
	}
}

func TestConfigValidatorErrorString(t *testing.T) {
	v := NewConfigValidator()
	v.AddError("A", "first")
	v.AddError("B", "second")

	s := v.ErrorString()
	assert.Contains(t, s, "2 error(s)")
	assert.Contains(t, s, "1. config validation failed for A: first")
	assert.Contains(t, s, "2. config validation failed for B: second")
	assert.Len(t, v.Errors(), 2)
}
