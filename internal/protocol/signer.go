package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Header is one name/value pair included in a request signature
type Header struct {
	Name  string
	Value string
}

// Signer builds the Authorization header for the recognition service.
// With a secret key the request is HMAC-signed, otherwise the token is sent as a bearer.
type Signer struct {
	AccessToken string
	SecretKey   string
}

// Authorization returns the header value for a request. The method, path and headers
// must be exactly what the transport sends or the server rejects the handshake.
func (s Signer) Authorization(method, path string, headers []Header) string {
	if s.SecretKey == "" {
		return "Bearer; " + s.AccessToken
	}

	mac := s.Sign(StringToSign(method, path, headers))
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	return fmt.Sprintf(`HMAC256; access_token="%s"; mac="%s"; h="%s"`,
		s.AccessToken, mac, strings.Join(names, ","))
}

// Sign returns the unpadded base64url HMAC-SHA256 of s keyed by the secret
func (s Signer) Sign(data string) string {
	m := hmac.New(sha256.New, []byte(s.SecretKey))
	m.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// StringToSign builds the canonical request text, headers in the given order
func StringToSign(method, path string, headers []Header) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\n", method, path)
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\n", h.Name, h.Value)
	}
	return b.String()
}
