package refvenue

import "testing"

func TestNewSignerHMACOnly(t *testing.T) {
	t.Parallel()
	s, err := NewSigner(Credentials{HMACSecret: "c2VjcmV0", APIKeyIndex: 3})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	headers, err := s.Headers("GET", "/orders", "")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if headers["X-SIGNATURE"] == "" {
		t.Error("expected non-empty X-SIGNATURE header")
	}
	if headers["X-API-KEY"] != "3" {
		t.Errorf("X-API-KEY = %q, want 3", headers["X-API-KEY"])
	}
}

func TestNewSignerECDSA(t *testing.T) {
	t.Parallel()
	s, err := NewSigner(Credentials{PrivateKey: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if s.Address().Hex() == "" {
		t.Error("expected a derived address")
	}
	headers, err := s.Headers("POST", "/orders", `{"symbol":"BTC-USD"}`)
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if headers["X-ADDRESS"] != s.Address().Hex() {
		t.Errorf("X-ADDRESS = %q, want %q", headers["X-ADDRESS"], s.Address().Hex())
	}
	if headers["X-SIGNATURE"] == "" {
		t.Error("expected non-empty X-SIGNATURE header")
	}
}

func TestSignerNoCredentialsErrors(t *testing.T) {
	t.Parallel()
	s, err := NewSigner(Credentials{})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if _, err := s.Headers("GET", "/orders", ""); err == nil {
		t.Error("expected error signing with no credentials")
	}
}
