package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Database == "" {
		add("database", "must not be empty")
	}

	switch c.Signing.Backend {
	case "":
	case "autograph":
		if c.Signing.Autograph.URL == "" {
			add("signing.autograph.url", "required for the autograph backend")
		} else if !isHTTPURL(c.Signing.Autograph.URL) {
			add("signing.autograph.url", "must be an http(s) URL")
		}
	case "local":
		if c.Signing.LocalKeyPath == "" {
			add("signing.local_key_path", "required for the local backend")
		}
	default:
		add("signing.backend", "must be autograph or local, got %q", c.Signing.Backend)
	}
	if c.Signing.MaxSignatureAge.Duration < 0 {
		add("signing.max_signature_age", "must not be negative")
	}
	if c.Signing.BatchSize < 0 {
		add("signing.batch_size", "must not be negative")
	}
	if c.Signing.Autograph.Timeout.Duration < 0 {
		add("signing.autograph.timeout", "must not be negative")
	}

	rs := c.RemoteSettings
	if rs.Enabled() {
		if !isHTTPURL(rs.URL) {
			add("remote_settings.url", "must be an http(s) URL")
		}
		if rs.Collection == "" {
			add("remote_settings.collection", "must not be empty")
		}
		if rs.WorkspaceBucket == "" || rs.PublishBucket == "" {
			add("remote_settings", "workspace_bucket and publish_bucket must not be empty")
		}
	}
	if rs.Parallelism < 1 {
		add("remote_settings.parallelism", "must be at least 1")
	}
	if rs.Timeout.Duration < 0 {
		add("remote_settings.timeout", "must not be negative")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		add("log.level", "must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		add("log.format", "must be text or json, got %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
