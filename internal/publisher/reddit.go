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

const redditSubmitURL = "https://oauth.reddit.com/api/submit"

type redditPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewRedditPublisher(cfg config.Config, client *http.Client) Publisher {
	return &redditPublisher{cfg: cfg, client: client}
}

func (p *redditPublisher) Platform() string { return models.PlatformReddit }

type redditSubmitResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

func (p *redditPublisher) Publish(ctx context.Context, req Request, acc *models.SocialAccount) (*Result, error) {
	// Reddit refuses submissions without a title; fail before touching
	// the API rather than burning a rate-limited call.
	if strings.TrimSpace(req.Title) == "" {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "reddit posts require a title"}
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "stored access token could not be decrypted"}
	}

	form := url.Values{}
	form.Set("sr", "u_"+acc.AccountUsername)
	form.Set("title", req.Title)
	form.Set("api_type", "json")
	if req.ImageURL != "" {
		form.Set("kind", "link")
		form.Set("url", req.ImageURL)
	} else {
		form.Set("kind", "self")
		form.Set("text", req.Content)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, redditSubmitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", "postpilot/1.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Platform(), err)
	}
	defer resp.Body.Close()

	var result redditSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transportError(p.Platform(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(p.Platform(), resp.StatusCode, "")
	}
	if len(result.JSON.Errors) > 0 {
		return nil, apiError(p.Platform(), http.StatusBadRequest, fmt.Sprintf("%v", result.JSON.Errors[0]))
	}

	return &Result{
		RemoteID: result.JSON.Data.ID,
		URL:      result.JSON.Data.URL,
	}, nil
}
