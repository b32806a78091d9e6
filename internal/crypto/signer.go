package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kalshi authentication headers attached to every signed request.
const (
	HeaderAccessKey       = "KALSHI-ACCESS-KEY"
	HeaderAccessSignature = "KALSHI-ACCESS-SIGNATURE"
	HeaderAccessTimestamp = "KALSHI-ACCESS-TIMESTAMP"
)

// RequestSigner produces the RSA-PSS signatures the Kalshi trade API requires.
// The signed message is the millisecond timestamp, the HTTP method, and the
// full request path (including the /trade-api/v2 prefix and any query string)
// concatenated in that order.
type RequestSigner struct {
	accessKeyID string
	privateKey  *rsa.PrivateKey
	now         func() time.Time
}

// NewRequestSigner creates a RequestSigner from a Kalshi access key ID and a
// PEM-encoded RSA private key (PKCS#8 or PKCS#1).
func NewRequestSigner(accessKeyID string, pemBytes []byte) (*RequestSigner, error) {
	if accessKeyID == "" {
		return nil, fmt.Errorf("crypto/signer: access key id must not be empty")
	}

	key, err := ParseRSAPrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}

	return &RequestSigner{
		accessKeyID: accessKeyID,
		privateKey:  key,
		now:         time.Now,
	}, nil
}

// AccessKeyID returns the access key the signer authenticates as.
func (s *RequestSigner) AccessKeyID() string {
	return s.accessKeyID
}

// Sign signs method+path at the current time and returns the millisecond
// timestamp string and the base64-encoded signature. path must be the full
// request path as sent on the wire, including the API prefix and query string.
func (s *RequestSigner) Sign(method, path string) (timestamp, signature string, err error) {
	timestamp = strconv.FormatInt(s.now().UnixMilli(), 10)

	msg := timestamp + strings.ToUpper(method) + path
	digest := sha256.Sum256([]byte(msg))

	sig, err := rsa.SignPSS(rand.Reader, s.privateKey, stdcrypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       stdcrypto.SHA256,
	})
	if err != nil {
		return "", "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	return timestamp, base64.StdEncoding.EncodeToString(sig), nil
}

// SignRequest computes the signature for req and sets the three Kalshi
// authentication headers on it. The query string, when present, is part of
// the signed path.
func (s *RequestSigner) SignRequest(req *http.Request) error {
	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	ts, sig, err := s.Sign(req.Method, path)
	if err != nil {
		return err
	}

	req.Header.Set(HeaderAccessKey, s.accessKeyID)
	req.Header.Set(HeaderAccessSignature, sig)
	req.Header.Set(HeaderAccessTimestamp, ts)
	return nil
}

// ParseRSAPrivateKey decodes a PEM block and parses it as an RSA private key.
// Both PKCS#8 ("PRIVATE KEY") and PKCS#1 ("RSA PRIVATE KEY") encodings are
// accepted.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("crypto/signer: no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("crypto/signer: PKCS#8 key is %T, want *rsa.PrivateKey", key)
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: parse private key: %w", err)
	}
	return key, nil
}
