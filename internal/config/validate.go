package config

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ValidationError represents a fatal configuration problem.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult collects errors and warnings from Validate.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors reports whether any fatal problems were found.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns the combined error message, or "" when valid.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration and returns every problem found rather
// than stopping at the first.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result, c.Observability.Environment)
	c.Server.validate(result)
	c.Observability.validate(result)
	return result
}

var validTLSModes = map[string]bool{
	"":            true,
	"off":         true,
	"skip-verify": true,
	"verify-ca":   true,
	"verify-full": true,
}

func (d *DatabaseConfig) validate(result *ValidationResult, environment string) {
	switch d.Driver {
	case DriverMemory:
		if !strings.EqualFold(environment, "development") {
			result.addWarning("database.driver",
				"memory driver does not persist data",
				"use the mysql driver outside development")
		}
		return
	case DriverMySQL:
	default:
		result.addError("database.driver",
			fmt.Sprintf("unknown driver %q", d.Driver),
			"use mysql or memory")
		return
	}

	if d.ConnectionString != "" {
		if _, err := mysql.ParseDSN(d.ConnectionString); err != nil {
			result.addError("database.dsn",
				fmt.Sprintf("invalid DSN: %v", err),
				"expected user:password@tcp(host:port)/database")
		}
	} else {
		if strings.TrimSpace(d.Host) == "" {
			result.addError("database.host", "host is required", "")
		}
		if d.Port < 1 || d.Port > 65535 {
			result.addError("database.port",
				fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port), "")
		}
		if strings.TrimSpace(d.User) == "" {
			result.addError("database.user", "user is required", "")
		}
		if strings.TrimSpace(d.Database) == "" {
			result.addError("database.database", "database name is required", "")
		}
	}

	if !validTLSModes[d.TLS.Mode] {
		result.addError("database.tls.mode",
			fmt.Sprintf("unknown TLS mode %q", d.TLS.Mode),
			"use off, skip-verify, verify-ca, or verify-full")
	}
	if (d.TLS.Mode == "verify-ca" || d.TLS.Mode == "verify-full") && d.TLS.CAFile == "" {
		result.addError("database.tls.ca_file",
			fmt.Sprintf("ca_file is required for mode %q", d.TLS.Mode), "")
	}
	if d.TLS.Mode == "skip-verify" {
		result.addWarning("database.tls.mode",
			"skip-verify does not authenticate the server",
			"prefer verify-ca or verify-full in production")
	}

	if d.Pool.MaxOpen < 0 || d.Pool.MaxIdle < 0 {
		result.addError("database.pool", "pool sizes cannot be negative", "")
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.addWarning("database.pool.max_idle",
			fmt.Sprintf("max_idle (%d) exceeds max_open (%d)", d.Pool.MaxIdle, d.Pool.MaxOpen),
			"idle connections above max_open are closed immediately")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port",
			fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}
	if s.GraphQLMaxDepth < 1 {
		result.addError("server.graphql_max_depth",
			fmt.Sprintf("depth limit %d must be at least 1", s.GraphQLMaxDepth), "")
	}

	if s.RateLimitEnabled {
		if s.RateLimitRPS <= 0 {
			result.addError("server.rate_limit_rps",
				"rate limiting is enabled but rps is not positive", "")
		}
		if s.RateLimitBurst < 1 {
			result.addError("server.rate_limit_burst",
				"rate limiting is enabled but burst is not positive", "")
		}
	}

	if s.CORSEnabled && len(s.CORSAllowedOrigins) == 0 {
		result.addWarning("server.cors_allowed_origins",
			"CORS is enabled with no allowed origins; all cross-origin requests will be refused",
			"list the origins that may call this API")
	}
	if s.CORSAllowCredentials {
		for _, origin := range s.CORSAllowedOrigins {
			if origin == "*" {
				result.addError("server.cors_allowed_origins",
					`wildcard origin "*" cannot be combined with allow_credentials`,
					"list explicit origins instead")
				break
			}
		}
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 || s.ShutdownTimeout < 0 {
		result.addError("server", "timeouts cannot be negative", "")
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(o.ServiceName) == "" {
		result.addError("observability.service_name", "service name is required", "")
	}
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio",
			fmt.Sprintf("ratio %v must be between 0.0 and 1.0", o.TraceSampleRatio), "")
	}

	switch strings.ToLower(o.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		result.addError("observability.logging.level",
			fmt.Sprintf("unknown level %q", o.Logging.Level),
			"use debug, info, warn, or error")
	}
	switch strings.ToLower(o.Logging.Format) {
	case "", "json", "text":
	default:
		result.addError("observability.logging.format",
			fmt.Sprintf("unknown format %q", o.Logging.Format),
			"use json or text")
	}

	switch strings.ToLower(o.OTLP.Protocol) {
	case "", "grpc", "http", "http/protobuf":
	default:
		result.addError("observability.otlp.protocol",
			fmt.Sprintf("unknown protocol %q", o.OTLP.Protocol),
			"use grpc or http/protobuf")
	}

	if (o.TracingEnabled || o.Logging.ExportsEnabled) && strings.TrimSpace(o.OTLP.Endpoint) == "" {
		result.addError("observability.otlp.endpoint",
			"OTLP export is enabled but no endpoint is configured", "")
	}
}
