// config_validation.go - Startup validation of the GALLERY_* environment.
//
// Validates all environment variables at startup to fail fast with clear
// error messages rather than runtime failures.
package server

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"image-gallery/internal/logging"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator collects configuration errors.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		errors: make([]ConfigValidationError, 0),
	}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Configuration validation failed with %d error(s):\n", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidateRequired validates that a required environment variable is set.
func (v *ConfigValidator) ValidateRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		v.AddError(key, "required environment variable not set")
	}
	return value
}

// ValidateURL validates that a value is an http or https URL.
func (v *ConfigValidator) ValidateURL(key, value string) {
	if value == "" {
		return // Skip validation if empty (check with ValidateRequired first)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
}

// ValidateListenAddr validates "host:port" or ":port".
func (v *ConfigValidator) ValidateListenAddr(key, value string) {
	if value == "" {
		return
	}

	_, portStr, err := net.SplitHostPort(value)
	if err != nil {
		v.AddError(key, "must be host:port or :port")
		return
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}

	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}

	for _, opt := range allowed {
		if value == opt {
			return
		}
	}

	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}

	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateDuration validates a positive time.ParseDuration string.
func (v *ConfigValidator) ValidateDuration(key, value string) {
	if value == "" {
		return
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		v.AddError(key, "must be a valid duration (e.g., 12h, 30m)")
		return
	}
	if d <= 0 {
		v.AddError(key, "must be a positive duration")
	}
}

// ValidateBool validates strconv.ParseBool input.
func (v *ConfigValidator) ValidateBool(key, value string) {
	if value == "" {
		return
	}
	if _, err := strconv.ParseBool(value); err != nil {
		v.AddError(key, "must be true or false")
	}
}

// ValidateRate validates a "<count>/<window>" rate limit.
func (v *ConfigValidator) ValidateRate(key, value string) {
	if value == "" {
		return
	}
	if _, _, err := ParseRate(value); err != nil {
		v.AddError(key, err.Error())
	}
}

// ValidateAllConfiguration performs comprehensive validation of all configuration.
func ValidateAllConfiguration() error {
	v := NewConfigValidator()

	v.ValidateListenAddr("GALLERY_ADDR", os.Getenv("GALLERY_ADDR"))
	v.ValidateDuration("GALLERY_SESSION_TTL", os.Getenv("GALLERY_SESSION_TTL"))
	v.ValidateBool("GALLERY_COOKIE_SECURE", os.Getenv("GALLERY_COOKIE_SECURE"))
	v.ValidateBool("GALLERY_TRUST_PROXY", os.Getenv("GALLERY_TRUST_PROXY"))
	v.ValidatePositiveInt("GALLERY_LOCKOUT_ATTEMPTS", os.Getenv("GALLERY_LOCKOUT_ATTEMPTS"))
	v.ValidateDuration("GALLERY_LOCKOUT_DURATION", os.Getenv("GALLERY_LOCKOUT_DURATION"))

	// Asset store
	backend := os.Getenv("GALLERY_STORE")
	v.ValidateEnum("GALLERY_STORE", backend, []string{"minio", "s3", "memory"})
	switch backend {
	case "", "minio":
		v.ValidateRequired("GALLERY_S3_ENDPOINT")
		v.ValidateRequired("GALLERY_S3_ACCESS_KEY")
		v.ValidateRequired("GALLERY_S3_SECRET_KEY")
		v.ValidateRequired("GALLERY_BUCKET")
	case "s3":
		v.ValidateRequired("GALLERY_BUCKET")
		if (os.Getenv("GALLERY_S3_ACCESS_KEY") == "") != (os.Getenv("GALLERY_S3_SECRET_KEY") == "") {
			v.AddError("GALLERY_S3_SECRET_KEY", "GALLERY_S3_ACCESS_KEY and GALLERY_S3_SECRET_KEY must be set together")
		}
	}

	if endpoint := os.Getenv("GALLERY_S3_ENDPOINT"); strings.Contains(endpoint, "://") {
		v.ValidateURL("GALLERY_S3_ENDPOINT", endpoint)
	}
	v.ValidateURL("GALLERY_PUBLIC_BASE_URL", os.Getenv("GALLERY_PUBLIC_BASE_URL"))

	if prefix := os.Getenv("GALLERY_PREFIX"); prefix != "" && !strings.HasSuffix(prefix, "/") {
		v.AddError("GALLERY_PREFIX", "must end with /")
	}

	v.ValidateDuration("GALLERY_URL_TTL", os.Getenv("GALLERY_URL_TTL"))
	v.ValidatePositiveInt("GALLERY_LIST_MAX", os.Getenv("GALLERY_LIST_MAX"))
	v.ValidatePositiveInt("GALLERY_MAX_UPLOAD_BYTES", os.Getenv("GALLERY_MAX_UPLOAD_BYTES"))

	// Rate limits
	v.ValidateRate("GALLERY_RATE_API", os.Getenv("GALLERY_RATE_API"))
	v.ValidateRate("GALLERY_RATE_UPLOAD", os.Getenv("GALLERY_RATE_UPLOAD"))
	v.ValidateRate("GALLERY_RATE_AUTH", os.Getenv("GALLERY_RATE_AUTH"))

	// Log configuration
	v.ValidateEnum("GALLERY_LOG_FORMAT", os.Getenv("GALLERY_LOG_FORMAT"), []string{"json", "text"})
	v.ValidateEnum("GALLERY_LOG_LEVEL", os.Getenv("GALLERY_LOG_LEVEL"), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("GALLERY_ENV", os.Getenv("GALLERY_ENV"), []string{"development", "production", "staging"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}

	return nil
}

// WarnOnOptionalMissingConfig logs warnings for optional but recommended config.
func WarnOnOptionalMissingConfig() {
	warnings := make([]string, 0)

	if os.Getenv("GALLERY_PASSWORD") == "" {
		warnings = append(warnings, "GALLERY_PASSWORD not set - using the default manager password")
	}

	if os.Getenv("GALLERY_STORE") == "memory" {
		warnings = append(warnings, "GALLERY_STORE=memory - images are lost on restart")
	}

	if os.Getenv("GALLERY_COOKIE_SECURE") == "" && os.Getenv("GALLERY_ENV") == "production" {
		warnings = append(warnings, "GALLERY_COOKIE_SECURE not set - session cookie sent over plain HTTP")
	}

	if os.Getenv("GALLERY_LOG_FORMAT") == "" {
		warnings = append(warnings, "GALLERY_LOG_FORMAT not set - using text format (consider 'json' for production)")
	}

	if len(warnings) > 0 {
		logging.Warn("configuration warnings", map[string]any{
			"count":    len(warnings),
			"warnings": warnings,
		})
	}
}
