package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"log/slog"
)

// PINHasher keys PIN digests with a server secret so stored credentials
// never hold the PIN itself.
type PINHasher struct {
	secretKey []byte
	logger    *slog.Logger
}

func NewPINHasher(secretKey string, logger *slog.Logger) *PINHasher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PINHasher{
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (h *PINHasher) Hash(pin string) []byte {
	mac := hmac.New(sha256.New, h.secretKey)
	mac.Write([]byte(pin))
	return mac.Sum(nil)
}

func (h *PINHasher) Verify(digest []byte, candidate string) bool {
	return hmac.Equal(digest, h.Hash(candidate))
}

// NewCredential hashes pin and returns a value satisfying domain.Credential.
func (h *PINHasher) NewCredential(pin string) *PINCredential {
	return &PINCredential{digest: h.Hash(pin), hasher: h}
}

type PINCredential struct {
	digest []byte
	hasher *PINHasher
}

func (c *PINCredential) Matches(candidate string) bool {
	ok := c.hasher.Verify(c.digest, candidate)
	if !ok {
		c.hasher.logger.Debug("PIN verification failed")
	}
	return ok
}
