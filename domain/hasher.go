package domain

// Hasher is the core port for any hashing strategy.
type Hasher interface {
	Hash(data []byte) string
}

// Fingerprint returns a short, non-reversible identifier for a secret so it
// can be logged. An empty secret has an empty fingerprint.
func Fingerprint(h Hasher, secret string) string {
	if secret == "" {
		return ""
	}
	sum := h.Hash([]byte(secret))
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
