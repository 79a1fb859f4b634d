package auth

import (
	"testing"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	raw, err := MintAccessToken(42, true)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	uid, staff, err := ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uid != 42 || !staff {
		t.Fatalf("unexpected claims uid=%d staff=%v", uid, staff)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, _, err := ParseAccessToken("not.a.token"); err == nil {
		t.Fatal("expected error for garbage token")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	raw, err := MintAccessToken(7, false)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	tampered := raw[:len(raw)-2] + "xx"
	if _, _, err := ParseAccessToken(tampered); err == nil {
		t.Fatal("expected error for tampered signature")
	}
}

func TestDeviceTokenHashing(t *testing.T) {
	raw, hash, err := NewDeviceToken()
	if err != nil {
		t.Fatalf("new device token: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("raw length = %d, want 64", len(raw))
	}
	if HashToken(raw) != hash {
		t.Fatal("hash mismatch")
	}
	raw2, hash2, err := NewDeviceToken()
	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if raw == raw2 || hash == hash2 {
		t.Fatal("device tokens must be unique")
	}
}
