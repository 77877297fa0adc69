// Package cryptoauth computes the HMAC-SHA256 challenge-response used by
// the handshake (spec §4.3/§6): the server-issued salt is HMAC'd with the
// viewer's password as key, and the lowercase hex digest is sent back as
// AUTH_RESPONSE|hash=....
package cryptoauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeResponse returns lowercase hex(HMAC-SHA256(key=password, message=salt)).
func ComputeResponse(password, salt string) string {
	mac := hmac.New(sha256.New, []byte(password))
	mac.Write([]byte(salt))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyResponse reports whether hash matches the expected response for
// password and salt, using constant-time comparison to avoid leaking
// timing information about the correct hash.
func VerifyResponse(password, salt, hash string) bool {
	expected := ComputeResponse(password, salt)
	expectedBytes, err1 := hex.DecodeString(expected)
	gotBytes, err2 := hex.DecodeString(hash)
	if err1 != nil || err2 != nil {
		return false
	}
	return hmac.Equal(expectedBytes, gotBytes)
}
