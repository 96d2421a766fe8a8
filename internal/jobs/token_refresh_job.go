package job

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"postpilot/internal/repository"
	"postpilot/pkg/utils"
)

// TokenRefreshJob rotates platform access tokens before they expire, so
// the delivery processor never picks up an account with a dead token.
type TokenRefreshJob struct {
	sa        repository.SocialAccountRepository
	oauth     map[string]*oauth2.Config
	secretKey string
	window    time.Duration
}

func NewTokenRefreshJob(sa repository.SocialAccountRepository, oauth map[string]*oauth2.Config, secretKey string) *TokenRefreshJob {
	return &TokenRefreshJob{
		sa:        sa,
		oauth:     oauth,
		secretKey: secretKey,
		window:    30 * time.Minute,
	}
}

func (j *TokenRefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now()
	accounts, err := j.sa.ListExpiring(ctx, now, now.Add(j.window))
	if err != nil {
		slog.Error("token refresh listing failed", "error", err)
		return
	}

	for _, account := range accounts {
		if account.RefreshToken == "" {
			continue
		}

		oauthConfig, ok := j.oauth[account.Platform]
		if !ok {
			continue
		}

		if err := j.refresh(ctx, oauthConfig, account.ID, account.RefreshToken); err != nil {
			slog.Error("token refresh failed", "account_id", account.ID, "platform", account.Platform, "error", err)
		}
	}
}

func (j *TokenRefreshJob) refresh(ctx context.Context, oauthConfig *oauth2.Config, accountID int64, encryptedRefreshToken string) error {
	refreshToken, err := utils.Decrypt(encryptedRefreshToken, []byte(j.secretKey))
	if err != nil {
		return err
	}

	token, err := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(j.secretKey))
	if err != nil {
		return err
	}

	// Some providers rotate the refresh token on every use; keep the old
	// one when the response omits it.
	newRefreshToken := encryptedRefreshToken
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		newRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(j.secretKey))
		if err != nil {
			return err
		}
	}

	return j.sa.SetToken(ctx, accountID, encryptedAccessToken, newRefreshToken, token.Expiry)
}
