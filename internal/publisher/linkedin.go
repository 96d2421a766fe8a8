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

const linkedinPostURL = "https://api.linkedin.com/v2/ugcPosts"

type linkedinPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewLinkedinPublisher(cfg config.Config, client *http.Client) Publisher {
	return &linkedinPublisher{cfg: cfg, client: client}
}

func (p *linkedinPublisher) Platform() string { return models.PlatformLinkedin }

type linkedinShareRequest struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent struct {
			ShareCommentary struct {
				Text string `json:"text"`
			} `json:"shareCommentary"`
			ShareMediaCategory string `json:"shareMediaCategory"`
		} `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

type linkedinShareResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (p *linkedinPublisher) Publish(ctx context.Context, req Request, acc *models.SocialAccount) (*Result, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, &models.DeliveryError{Platform: p.Platform(), Reason: "stored access token could not be decrypted"}
	}

	var share linkedinShareRequest
	share.Author = "urn:li:person:" + acc.AccountID
	share.LifecycleState = "PUBLISHED"
	share.SpecificContent.ShareContent.ShareCommentary.Text = req.Content
	share.SpecificContent.ShareContent.ShareMediaCategory = "NONE"
	share.Visibility.MemberNetworkVisibility = "PUBLIC"

	body, err := json.Marshal(share)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinPostURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError(p.Platform(), err)
	}
	defer resp.Body.Close()

	var result linkedinShareResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transportError(p.Platform(), err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError(p.Platform(), resp.StatusCode, result.Message)
	}

	return &Result{
		RemoteID: result.ID,
		URL:      fmt.Sprintf("https://www.linkedin.com/feed/update/%s", result.ID),
	}, nil
}
