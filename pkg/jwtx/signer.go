package jwtx

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// MinSecretLength is the shortest HMAC secret accepted, 256 bits.
const MinSecretLength = 32

// NewSignerHS256 creates an HMAC-SHA256 signer.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}
