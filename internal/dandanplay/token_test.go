package dandanplay

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenValiditySafetyMargin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name string
		raw  map[string]any
		want bool
	}{
		{"expires within margin", map[string]any{"token": "t", "expireTime": float64(now.Unix() + 30)}, false},
		{"expires after margin", map[string]any{"token": "t", "expireTime": float64(now.Unix() + 120)}, true},
		{"json number expiry", map[string]any{"token": "t", "expiresAt": json.Number("1700000120")}, true},
		{"snake case expiry", map[string]any{"token": "t", "expire_at": float64(now.Unix() - 1)}, false},
		{"iso expiry", map[string]any{"token": "t", "expireTime": now.Add(2 * time.Hour).UTC().Format(time.RFC3339)}, true},
		{"iso expiry inside margin", map[string]any{"token": "t", "expireTime": now.Add(59 * time.Second).UTC().Format(time.RFC3339)}, false},
		{"issued six days ago", map[string]any{"token": "t", "loginTime": float64(now.Add(-6 * 24 * time.Hour).Unix())}, true},
		{"issued eight days ago", map[string]any{"token": "t", "issuedAt": float64(now.Add(-8 * 24 * time.Hour).Unix())}, false},
		{"no timing metadata", map[string]any{"token": "t"}, true},
		{"zero expiry falls through", map[string]any{"token": "t", "expireTime": float64(0)}, true},
		{"empty token", map[string]any{"token": "", "expireTime": float64(now.Unix() + 3600)}, false},
		{"nil payload", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseToken(tt.raw).Valid(now); got != tt.want {
				t.Fatalf("Valid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeLoginPayloadCopiesExpireAt(t *testing.T) {
	raw := map[string]any{"token": "t", "expireAt": json.Number("123")}
	normalizeLoginPayload(raw)
	if raw["expireTime"] != json.Number("123") {
		t.Fatalf("expected expireTime copied from expireAt, got %v", raw["expireTime"])
	}
	kept := map[string]any{"token": "t", "expireTime": json.Number("5"), "expireAt": json.Number("9")}
	normalizeLoginPayload(kept)
	if kept["expireTime"] != json.Number("5") {
		t.Fatal("existing expireTime must win")
	}
}

func TestFileTokenStoreRoundTripKeepsUnknownFields(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "token.json"))
	if payload, err := store.Load(); err != nil || payload != nil {
		t.Fatalf("missing file should load as nil, got %v %v", payload, err)
	}
	in := map[string]any{"token": "abc", "expireTime": json.Number("1700000000"), "privileges": map[string]any{"member": true}}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out["token"] != "abc" || out["expireTime"] != json.Number("1700000000") {
		t.Fatalf("unexpected payload %v", out)
	}
	if _, ok := out["privileges"].(map[string]any); !ok {
		t.Fatalf("expected server fields preserved, got %v", out)
	}
}
