package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// PlatformIdentity is the minimal profile fetched after a platform OAuth
// exchange, normalized across providers.
type PlatformIdentity struct {
	AccountID string
	Name      string
	Username  string
	AvatarURL string
}
