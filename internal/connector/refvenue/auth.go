// auth.go signs outbound requests. Venues authenticate trading requests one
// of two ways: an HMAC-SHA256 digest over timestamp+method+path+body (the
// common REST pattern), or a raw ECDSA signature over the same message for
// venues that verify against an on-chain address instead of a shared
// secret. Both are supported from a single Credentials value so a connector
// doesn't need to know ahead of time which the account uses.
package refvenue

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces authentication headers for REST requests.
type Signer struct {
	creds      Credentials
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner builds a Signer from loaded credentials. When a private key is
// present it is parsed and its address derived; HMAC-only credentials skip
// that step entirely.
func NewSigner(creds Credentials) (*Signer, error) {
	s := &Signer{creds: creds}
	if creds.PrivateKey == "" {
		return s, nil
	}
	keyHex := creds.PrivateKey
	if len(keyHex) >= 2 && keyHex[:2] == "0x" {
		keyHex = keyHex[2:]
	}
	pk, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	s.privateKey = pk
	s.address = crypto.PubkeyToAddress(pk.PublicKey)
	return s, nil
}

// Address returns the signer's derived address, or the zero address when
// this Signer has no private key (HMAC-only credentials).
func (s *Signer) Address() common.Address {
	return s.address
}

// Headers computes the auth headers for one request. body is the raw
// request payload, empty for GET/DELETE.
func (s *Signer) Headers(method, path, body string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	message := timestamp + method + path + body

	if s.creds.HMACSecret != "" {
		sig, err := signHMAC(s.creds.HMACSecret, message)
		if err != nil {
			return nil, fmt.Errorf("hmac sign: %w", err)
		}
		return map[string]string{
			"X-API-KEY":   strconv.Itoa(s.creds.APIKeyIndex),
			"X-SIGNATURE": sig,
			"X-TIMESTAMP": timestamp,
		}, nil
	}

	if s.privateKey == nil {
		return nil, fmt.Errorf("signer has no credentials to sign with")
	}
	sig, err := signECDSA(s.privateKey, message)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}
	return map[string]string{
		"X-ADDRESS":   s.address.Hex(),
		"X-SIGNATURE": sig,
		"X-TIMESTAMP": timestamp,
	}, nil
}

func signHMAC(secret, message string) (string, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var secretBytes []byte
	var err error
	for _, dec := range decoders {
		secretBytes, err = dec.DecodeString(secret)
		if err == nil {
			break
		}
	}
	if err != nil {
		secretBytes = []byte(secret)
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func signECDSA(pk *ecdsa.PrivateKey, message string) (string, error) {
	hash := crypto.Keccak256Hash([]byte(message))
	sig, err := crypto.Sign(hash.Bytes(), pk)
	if err != nil {
		return "", err
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + common.Bytes2Hex(sig), nil
}
