package dandanplay

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	// SafetyMargin is subtracted from a token's expiry before it is trusted.
	SafetyMargin = 60 * time.Second
	// FallbackLifetime applies when the server reports only an issue time.
	FallbackLifetime = 7 * 24 * time.Hour
)

var (
	expiryKeys = []string{"expireTime", "expiresAt", "expire_at"}
	issueKeys  = []string{"loginTime", "issuedAt"}
)

// Token is a bearer token plus the timing metadata the server returned with it.
type Token struct {
	Value     string
	ExpiresAt time.Time
	IssuedAt  time.Time
	// Raw is the login payload as persisted to token.json.
	Raw map[string]any
}

// ParseToken interprets a login payload. Expiry comes from the first populated
// expiry field (unix seconds or an ISO-8601 string); when absent, the issue
// time plus FallbackLifetime is used.
func ParseToken(raw map[string]any) Token {
	tok := Token{Raw: raw}
	if raw == nil {
		return tok
	}
	if value, ok := raw["token"].(string); ok {
		tok.Value = value
	}
	if value := firstPopulated(raw, expiryKeys); value != nil {
		if at, ok := parseInstant(value); ok {
			tok.ExpiresAt = at
		}
	}
	if tok.ExpiresAt.IsZero() {
		if value := firstPopulated(raw, issueKeys); value != nil {
			if secs, ok := numeric(value); ok {
				tok.IssuedAt = unixFloat(secs)
				tok.ExpiresAt = tok.IssuedAt.Add(FallbackLifetime)
			}
		}
	}
	return tok
}

// Valid reports whether the token may still be presented at now. A token
// without any timing metadata is trusted as long as it is non-empty.
func (t Token) Valid(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	if !t.ExpiresAt.IsZero() {
		return now.Before(t.ExpiresAt.Add(-SafetyMargin))
	}
	return true
}

// normalizeLoginPayload copies expireAt into expireTime when the server only
// sent the former.
func normalizeLoginPayload(raw map[string]any) {
	if _, ok := raw["expireTime"]; !ok {
		raw["expireTime"] = raw["expireAt"]
	}
}

func firstPopulated(raw map[string]any, keys []string) any {
	for _, key := range keys {
		if value, ok := raw[key]; ok && populated(value) {
			return value
		}
	}
	return nil
}

func populated(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02",
}

func parseInstant(value any) (time.Time, bool) {
	if secs, ok := numeric(value); ok {
		return unixFloat(secs), true
	}
	text, ok := value.(string)
	if !ok {
		return time.Time{}, false
	}
	text = strings.TrimSpace(text)
	for _, layout := range isoLayouts {
		if at, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

func unixFloat(secs float64) time.Time {
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second)))
}

func unixString(at time.Time) string {
	return strconv.FormatInt(at.Unix(), 10)
}
