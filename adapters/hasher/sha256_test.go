package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satriahrh/cocoa-chat/domain"
)

func TestHash(t *testing.T) {
	h := New()
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h.Hash(nil))
	assert.Equal(t, h.Hash([]byte("key")), h.Hash([]byte("key")))
	assert.NotEqual(t, h.Hash([]byte("key")), h.Hash([]byte("other")))
}

func TestFingerprint(t *testing.T) {
	h := New()
	assert.Empty(t, domain.Fingerprint(h, ""))

	fp := domain.Fingerprint(h, "AIzaSecret")
	assert.Len(t, fp, 12)
	assert.NotContains(t, fp, "AIza")
}
