package service

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/instagram"
	"golang.org/x/oauth2/linkedin"

	config "postpilot/configs"
	"postpilot/internal/models"
)

// Twitter and Reddit have no endpoint in the oauth2 endpoint catalog.
var (
	twitterEndpoint = oauth2.Endpoint{
		AuthURL:  "https://twitter.com/i/oauth2/authorize",
		TokenURL: "https://api.twitter.com/2/oauth2/token",
	}
	redditEndpoint = oauth2.Endpoint{
		AuthURL:  "https://www.reddit.com/api/v1/authorize",
		TokenURL: "https://www.reddit.com/api/v1/access_token",
	}
)

// NewOAuthConfigs builds one oauth2 config per supported platform. The
// same configs serve the connect flow and the background token refresh.
func NewOAuthConfigs(cfg config.Config) map[string]*oauth2.Config {
	return map[string]*oauth2.Config{
		models.PlatformTwitter: {
			ClientID:     cfg.Twitter.ClientID,
			ClientSecret: cfg.Twitter.ClientSecret,
			RedirectURL:  cfg.Twitter.RedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint:     twitterEndpoint,
		},
		models.PlatformLinkedin: {
			ClientID:     cfg.Linkedin.ClientID,
			ClientSecret: cfg.Linkedin.ClientSecret,
			RedirectURL:  cfg.Linkedin.RedirectURI,
			Scopes:       []string{"openid", "profile", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
		models.PlatformInstagram: {
			ClientID:     cfg.Instagram.ClientID,
			ClientSecret: cfg.Instagram.ClientSecret,
			RedirectURL:  cfg.Instagram.RedirectURI,
			Scopes:       []string{"instagram_business_basic", "instagram_business_content_publish"},
			Endpoint:     instagram.Endpoint,
		},
		models.PlatformFacebook: {
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			RedirectURL:  cfg.Facebook.RedirectURI,
			Scopes:       []string{"public_profile", "pages_manage_posts", "pages_read_engagement"},
			Endpoint:     facebook.Endpoint,
		},
		models.PlatformReddit: {
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			RedirectURL:  cfg.Reddit.RedirectURI,
			Scopes:       []string{"identity", "submit"},
			Endpoint:     redditEndpoint,
		},
	}
}
