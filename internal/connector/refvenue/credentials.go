// credentials.go loads the venue credential file (spec §6 process inputs):
// key:value or key=value lines containing an API key index, a private key,
// an account index, and an ETH address where applicable. godotenv parses
// the KEY=VALUE shape; lines written with a colon separator are normalized
// to that shape first so both forms are accepted.
package refvenue

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials holds one venue's signing material.
type Credentials struct {
	APIKeyIndex  int
	PrivateKey   string // hex-encoded ECDSA key, 0x-prefixed or not
	AccountIndex int
	EthAddress   string
	HMACSecret   string // used instead of PrivateKey when the venue signs with HMAC
}

// LoadCredentials reads a credential file and extracts the fields a venue
// implementation needs. Missing optional fields are left zero-valued.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credential file: %w", err)
	}
	raw, err := godotenv.Unmarshal(colonToEquals(string(data)))
	if err != nil {
		return Credentials{}, fmt.Errorf("parse credential file: %w", err)
	}

	normalized := make(map[string]string, len(raw))
	for k, v := range raw {
		normalized[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	var creds Credentials
	creds.PrivateKey = normalized["PRIVATE_KEY"]
	creds.EthAddress = normalized["ETH_ADDRESS"]
	creds.HMACSecret = normalized["HMAC_SECRET"]

	if idx := normalized["API_KEY_INDEX"]; idx != "" {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return Credentials{}, fmt.Errorf("parse api_key_index: %w", err)
		}
		creds.APIKeyIndex = n
	}
	if idx := normalized["ACCOUNT_INDEX"]; idx != "" {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return Credentials{}, fmt.Errorf("parse account_index: %w", err)
		}
		creds.AccountIndex = n
	}

	if creds.PrivateKey == "" && creds.HMACSecret == "" {
		return Credentials{}, fmt.Errorf("credential file %s has neither private_key nor hmac_secret", path)
	}
	return creds, nil
}

// colonToEquals rewrites "key: value" / "key : value" lines to "key=value"
// so godotenv's parser, which only understands '=', can consume either
// syntax. Lines already using '=', blank lines, and comments pass through
// untouched.
func colonToEquals(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.Contains(trimmed, "=") {
			continue
		}
		if idx := strings.Index(trimmed, ":"); idx >= 0 {
			key := strings.TrimSpace(trimmed[:idx])
			val := strings.TrimSpace(trimmed[idx+1:])
			lines[i] = key + "=" + val
		}
	}
	return strings.Join(lines, "\n")
}
