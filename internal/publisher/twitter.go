package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	config "postpilot/configs"
	"postpilot/internal/models"
	"postpilot/pkg/utils"
)

const twitterPostURL = "https://api.twitter.com/2/tweets"

type twitterPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewTwitterPublisher(cfg config.Config, client *http.Client) Publisher {
	return &twitterPublisher{cfg: cfg, client: client}
}

func (p *twitterPublisher) Platform() string { return models.PlatformTwitter }

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

func (p *twitterPublisher) Publish(ctx context.Context, req Request, acc *models.SocialAccount) (*Result, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "stored access token could not be decrypted"}
	}

	body, err := json.Marshal(tweetRequest{Text: req.Content})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterPostURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Platform(), err)
	}
	defer resp.Body.Close()

	var result tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transportError(p.Platform(), err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError(p.Platform(), resp.StatusCode, result.Detail)
	}

	return &Result{
		RemoteID: result.Data.ID,
		URL:      fmt.Sprintf("https://twitter.com/%s/status/%s", acc.AccountUsername, result.Data.ID),
	}, nil
}
