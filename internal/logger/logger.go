// Package logger builds the zap loggers used by the repokit command and keeps
// connection secrets out of log output.
package logger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Log modes accepted by New.
const (
	ModeDevelopment = "dev"
	ModeProduction  = "prod"
	ModeQuiet       = "quiet"
)

// New builds a logger for mode. Development logs human readable lines at
// debug level; production logs JSON at info level; quiet discards everything.
func New(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeQuiet, "off", "nop":
		return zap.NewNop(), nil
	case ModeProduction, "production":
		cfg = zap.NewProductionConfig()
	case ModeDevelopment, "development", "debug":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

var keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// RedactDSN hides the password of a connection string. Both URL
// (postgres://user:pw@host/db) and keyword (host=h password=pw) forms are
// handled; file paths come back unchanged.
func RedactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			if u.User != nil {
				if _, ok := u.User.Password(); ok {
					u.User = url.UserPassword(u.User.Username(), "xxxxx")
				}
			}
			q := u.Query()
			if q.Has("password") {
				q.Set("password", "xxxxx")
				u.RawQuery = q.Encode()
			}
			return u.String()
		}
	}
	return keywordPassword.ReplaceAllString(dsn, "${1}xxxxx")
}
