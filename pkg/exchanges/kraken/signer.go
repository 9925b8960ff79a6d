package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"net/url"
)

// Credential is the API key pair for private endpoints. APISecret is the
// base64 secret exactly as issued by the exchange.
type Credential struct {
	APIKey    string
	APISecret string
}

// Empty reports whether either half of the pair is missing.
func (c Credential) Empty() bool { return c.APIKey == "" || c.APISecret == "" }

func (c Credential) String() string   { return "kraken.Credential{redacted}" }
func (c Credential) GoString() string { return c.String() }

// Signer holds a decoded secret and produces API-Sign values.
type Signer struct {
	key []byte
}

// NewSigner decodes secret once; a secret that is not valid base64 is a
// ConfigError.
func NewSigner(secret string) (*Signer, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, &ConfigError{Field: "api secret", Reason: "not valid base64", Err: err}
	}
	return &Signer{key: key}, nil
}

// Sign returns base64(HMAC-SHA512(key, path || SHA256(nonce + form))).
// The form is url-encoded with sorted keys, which must match the body that is
// actually posted.
func (s *Signer) Sign(path string, form url.Values) string {
	encoded := form.Encode()
	digest := sha256.Sum256([]byte(form.Get("nonce") + encoded))

	message := make([]byte, 0, len(path)+len(digest))
	message = append(message, path...)
	message = append(message, digest[:]...)

	mac := hmac.New(sha512.New, s.key)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Sign is the one-shot form of Signer.Sign.
func Sign(path string, form url.Values, secret string) (string, error) {
	s, err := NewSigner(secret)
	if err != nil {
		return "", err
	}
	return s.Sign(path, form), nil
}
