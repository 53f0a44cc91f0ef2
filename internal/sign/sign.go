// Package sign implements the canonical parameter-set signing used by the
// payment gateways: key=value pairs joined with '&' in ascending key order,
// values exactly as transmitted, keyed-hashed and rendered as lowercase hex.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"sort"
	"strings"
)

// Algorithm selects the keyed hash used by a gateway.
type Algorithm string

const (
	// HMACSHA256 is used by the wallet gateway.
	HMACSHA256 Algorithm = "hmac-sha256"
	// HMACSHA512 is used by the redirect gateway.
	HMACSHA512 Algorithm = "hmac-sha512"
)

func (a Algorithm) hasher() func() hash.Hash {
	if a == HMACSHA512 {
		return sha512.New
	}
	return sha256.New
}

// Canonicalize builds the signing string from a parameter set. The signature
// field must already be excluded by the caller; values are joined verbatim,
// encoding happens only at transmission time.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Sign computes the signature over the canonical form of params.
func Sign(params map[string]string, secret string, alg Algorithm) string {
	return SignRaw(Canonicalize(params), secret, alg)
}

// SignRaw computes the signature over an already-assembled payload. Gateways
// that sign pipe-joined field strings use this directly.
func SignRaw(data, secret string, alg Algorithm) string {
	mac := hmac.New(alg.hasher(), []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for params and compares it against the
// received value. It never panics on malformed input; an empty signature or
// empty secret always fails.
func Verify(params map[string]string, signature, secret string, alg Algorithm) bool {
	if strings.TrimSpace(signature) == "" || secret == "" {
		return false
	}
	expected := Sign(params, secret, alg)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// VerifyRaw compares the signature of a raw payload.
func VerifyRaw(data, signature, secret string, alg Algorithm) bool {
	if strings.TrimSpace(signature) == "" || secret == "" {
		return false
	}
	expected := SignRaw(data, secret, alg)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
