package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys emitted verbatim. Everything else passed through MaskField is masked.
var allowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"component":  {},
	"message":    {},
	"severity":   {},
	"timestamp":  {},
	"error":      {},
	"reason":     {},
	"op":         {},
	"receipt":    {},
	"outcome":    {},
	"kind":       {},
	"error_kind": {},
	"path":       {},
	"status":     {},
}

// IsAllowlisted reports whether key is exempt from redaction.
func IsAllowlisted(key string) bool {
	_, ok := allowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns key=value for allowlisted keys and key=[REDACTED]
// otherwise. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskAccount keeps the human-readable prefix and the last four characters of
// a bech32 account so operators can correlate lines without full identifiers.
func MaskAccount(key, account string) slog.Attr {
	account = strings.TrimSpace(account)
	sep := strings.LastIndexByte(account, '1')
	if sep <= 0 || len(account)-sep <= 8 {
		return MaskField(key, account)
	}
	return slog.String(key, account[:sep+1]+"…"+account[len(account)-4:])
}
