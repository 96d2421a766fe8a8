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

const instagramGraphURL = "https://graph.instagram.com/v19.0"

type instagramPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewInstagramPublisher(cfg config.Config, client *http.Client) Publisher {
	return &instagramPublisher{cfg: cfg, client: client}
}

func (p *instagramPublisher) Platform() string { return models.PlatformInstagram }

type instagramAPIResponse struct {
	ID    string `json:"id"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish runs the two-step Instagram flow: create a media container from
// the image URL, then publish the container.
func (p *instagramPublisher) Publish(ctx context.Context, req Request, acc *models.SocialAccount) (*Result, error) {
	if req.ImageURL == "" {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "instagram posts require an image"}
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "stored access token could not be decrypted"}
	}

	container := url.Values{}
	container.Set("image_url", req.ImageURL)
	container.Set("caption", req.Content)
	container.Set("access_token", accessToken)

	containerResp, err := p.call(ctx, fmt.Sprintf("%s/%s/media", instagramGraphURL, acc.AccountID), container)
	if err != nil {
		return nil, err
	}

	publish := url.Values{}
	publish.Set("creation_id", containerResp.ID)
	publish.Set("access_token", accessToken)

	publishResp, err := p.call(ctx, fmt.Sprintf("%s/%s/media_publish", instagramGraphURL, acc.AccountID), publish)
	if err != nil {
		return nil, err
	}

	return &Result{
		RemoteID: publishResp.ID,
		URL:      fmt.Sprintf("https://www.instagram.com/p/%s", publishResp.ID),
	}, nil
}

func (p *instagramPublisher) call(ctx context.Context, endpoint string, form url.Values) (*instagramAPIResponse, error) {
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

	var result instagramAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transportError(p.Platform(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(p.Platform(), resp.StatusCode, result.Error.Message)
	}

	return &result, nil
}
