package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "postpilot/configs"
	"postpilot/internal/models"
	"postpilot/pkg/utils"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0"

type facebookPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewFacebookPublisher(cfg config.Config, client *http.Client) Publisher {
	return &facebookPublisher{cfg: cfg, client: client}
}

func (p *facebookPublisher) Platform() string { return models.PlatformFacebook }

type facebookPostResponse struct {
	ID    string `json:"id"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *facebookPublisher) Publish(ctx context.Context, req Request, acc *models.SocialAccount) (*Result, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "stored access token could not be decrypted"}
	}

	endpoint := fmt.Sprintf("%s/%s/feed", facebookGraphURL, acc.AccountID)
	form := url.Values{}
	form.Set("message", req.Content)
	form.Set("access_token", accessToken)
	if req.ImageURL != "" {
		endpoint = fmt.Sprintf("%s/%s/photos", facebookGraphURL, acc.AccountID)
		form.Set("url", req.ImageURL)
		form.Set("caption", req.Content)
		form.Del("message")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Platform(), err)
	}
	defer resp.Body.Close()

	var result facebookPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transportError(p.Platform(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(p.Platform(), resp.StatusCode, result.Error.Message)
	}

	return &Result{
		RemoteID: result.ID,
		URL:      fmt.Sprintf("https://www.facebook.com/%s", result.ID),
	}, nil
}
