package jwt

import (
	"sync"
	"time"

	"monger-backend/internal/env"
)

// Identity tokens are deliberately long-lived: they are the only thing that
// makes a returning visitor recognizable across sessions.
const IdentityTokenTTL = 180 * 24 * time.Hour

var (
	secretOnce    sync.Once
	visitorSecret []byte
)

func identitySecret() []byte {
	secretOnce.Do(func() {
		visitorSecret = []byte(env.Get(env.VisitorSecretKey))
	})
	return visitorSecret
}

// SetIdentitySecret overrides the signing secret. Tests use it so the package
// does not depend on process environment.
func SetIdentitySecret(secret []byte) {
	secretOnce.Do(func() {})
	visitorSecret = make([]byte, len(secret))
	copy(visitorSecret, secret)
}
