package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	config "postpilot/configs"
	"postpilot/internal/models"
	"postpilot/internal/repository"
	"postpilot/internal/transfer"
	"postpilot/pkg/utils"
)

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform, state string) (string, error)
	ConnectCallback(ctx context.Context, userID int64, platform, code string) error
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg   config.Config
	oauth map[string]*oauth2.Config
	sa    repository.SocialAccountRepository
}

func NewPlatformService(cfg config.Config, sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		cfg:   cfg,
		oauth: NewOAuthConfigs(cfg),
		sa:    sa,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform, state string) (string, error) {
	oauthConfig, ok := s.oauth[platform]
	if !ok {
		err := fmt.Errorf("platform %s is not supported", platform)
		slog.Info(err.Error())
		return "", err
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if platform == models.PlatformReddit {
		// Reddit only issues a refresh token for permanent grants.
		opts = append(opts, oauth2.SetAuthURLParam("duration", "permanent"))
	}

	return oauthConfig.AuthCodeURL(state, opts...), nil
}

func (s *platformService) ConnectCallback(ctx context.Context, userID int64, platform, code string) error {
	var err error

	if code == "" {
		err = errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	oauthConfig, ok := s.oauth[platform]
	if !ok {
		err = fmt.Errorf("platform %s is not supported", platform)
		slog.Info(err.Error())
		return err
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("Unable to exchange authorization code")
	}

	identity, err := fetchIdentity(oauthConfig.Client(ctx, token), platform)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("Unable to fetch account info")
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken := ""
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	account := models.SocialAccount{
		UserID:          userID,
		Platform:        platform,
		AccountID:       identity.AccountID,
		AccountName:     identity.Name,
		AccountUsername: identity.Username,
		ProfilePicture:  identity.AvatarURL,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  token.Expiry,
	}

	_, err = s.sa.Create(ctx, nil, &account)
	if err != nil {
		return fmt.Errorf("Error saving social account")
	}

	return nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.sa.Remove(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Error removing account Info")
	}

	return nil
}

// fetchIdentity normalizes each platform's profile endpoint into a
// PlatformIdentity.
func fetchIdentity(client *http.Client, platform string) (*transfer.PlatformIdentity, error) {
	switch platform {
	case models.PlatformTwitter:
		var body struct {
			Data struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Username string `json:"username"`
			} `json:"data"`
		}
		if err := getJSON(client, "https://api.twitter.com/2/users/me", &body); err != nil {
			return nil, err
		}
		return &transfer.PlatformIdentity{AccountID: body.Data.ID, Name: body.Data.Name, Username: body.Data.Username}, nil

	case models.PlatformLinkedin:
		var body struct {
			Sub     string `json:"sub"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := getJSON(client, "https://api.linkedin.com/v2/userinfo", &body); err != nil {
			return nil, err
		}
		return &transfer.PlatformIdentity{AccountID: body.Sub, Name: body.Name, AvatarURL: body.Picture}, nil

	case models.PlatformInstagram:
		var body struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		if err := getJSON(client, "https://graph.instagram.com/me?fields=id,username", &body); err != nil {
			return nil, err
		}
		return &transfer.PlatformIdentity{AccountID: body.ID, Name: body.Username, Username: body.Username}, nil

	case models.PlatformFacebook:
		var body struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := getJSON(client, "https://graph.facebook.com/me?fields=id,name", &body); err != nil {
			return nil, err
		}
		return &transfer.PlatformIdentity{AccountID: body.ID, Name: body.Name}, nil

	case models.PlatformReddit:
		var body struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			IconImg string `json:"icon_img"`
		}
		if err := getJSON(client, "https://oauth.reddit.com/api/v1/me", &body); err != nil {
			return nil, err
		}
		return &transfer.PlatformIdentity{AccountID: body.ID, Name: body.Name, Username: body.Name, AvatarURL: body.IconImg}, nil

	default:
		return nil, fmt.Errorf("platform %s is not supported", platform)
	}
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile request failed with status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
