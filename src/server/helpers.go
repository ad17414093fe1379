package server

import (
	"net/url"
	"strings"
	"time"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/models"
)

const redacted = "***"

// redactedConfig returns a copy of cfg that is safe to hand to browsers.
func redactedConfig(cfg *models.MConfig) models.MConfig {
	out := *cfg
	if out.Backend.APIToken != "" {
		out.Backend.APIToken = redacted
	}
	if out.Backend.JWTSecret != "" {
		out.Backend.JWTSecret = redacted
	}
	out.Storage.DBConnectionString = redactURL(out.Storage.DBConnectionString)
	out.Cache.RedisURL = redactURL(out.Cache.RedisURL)
	out.Messaging.AMQPURL = redactURL(out.Messaging.AMQPURL)
	return out
}

// redactURL masks the password of a URL-style DSN; other DSNs are masked whole.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return redacted
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), redacted)
	}
	return u.String()
}

// -----------------------------------------------------------------------------

func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return helpers.NewValidationError("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return nil
}

// -----------------------------------------------------------------------------

// allowLocalOrigin admits dashboards served from the local machine.
func allowLocalOrigin(origin string) bool {
	for _, prefix := range []string{"http://127.0.0.1:", "http://localhost:"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}
