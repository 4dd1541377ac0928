package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Google's desktop client endpoints, used when the client file leaves them out
const (
	googleAuthURI  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURI = "https://oauth2.googleapis.com/token"
	googleCertsURL = "https://www.googleapis.com/oauth2/v1/certs"
)

// OAuthClientConfig is the Google desktop client used to read the roster sheet
// and send schedule notifications
type OAuthClientConfig struct {
	Installed OAuthInstalled `json:"installed" validate:"required"`
}

type OAuthInstalled struct {
	ClientID                string   `json:"client_id" validate:"required"`
	ProjectID               string   `json:"project_id" validate:"required"`
	AuthURI                 string   `json:"auth_uri" validate:"required,url"`
	TokenURI                string   `json:"token_uri" validate:"required,url"`
	AuthProviderX509CertURL string   `json:"auth_provider_x509_cert_url" validate:"required,url"`
	ClientSecret            string   `json:"client_secret" validate:"required"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,uri"`
}

// oauthEnv lets deployments keep the client secret out of the JSON file
type oauthEnv struct {
	ClientFile   string `env:"OAUTH_CLIENT_FILE"`
	ClientSecret string `env:"OAUTH_CLIENT_SECRET"`
}

func oauthClientFileName(envName string) string {
	if envName == "" {
		return "oauthClient.json"
	}
	return "oauthClient." + envName + ".json"
}

// LoadOAuthClientWithEnv loads the client for an environment. OAUTH_CLIENT_FILE wins
// over the usual lookup of oauthClient.<env>.json in the working and home directories.
func LoadOAuthClientWithEnv(envName string) (*OAuthClientConfig, error) {
	overrides, err := env.ParseAs[oauthEnv]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	path := overrides.ClientFile
	if path == "" {
		path, err = findFile(oauthClientFileName(envName))
		if err != nil {
			return nil, fmt.Errorf("failed to find oauth client file: %w", err)
		}
	}

	return LoadOAuthClientFromPath(path)
}

// LoadOAuthClientFromPath reads the client file, fills Google's endpoints when absent,
// applies OAUTH_CLIENT_SECRET and validates the result
func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var oauthCfg OAuthClientConfig
	if err := json.Unmarshal(data, &oauthCfg); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file: %w", err)
	}

	overrides, err := env.ParseAs[oauthEnv]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if overrides.ClientSecret != "" {
		oauthCfg.Installed.ClientSecret = overrides.ClientSecret
	}
	oauthCfg.Installed.setDefaults()

	if err := validate.Struct(&oauthCfg); err != nil {
		return nil, fmt.Errorf("oauth client validation failed: %w", err)
	}

	return &oauthCfg, nil
}

func (o *OAuthInstalled) setDefaults() {
	if o.AuthURI == "" {
		o.AuthURI = googleAuthURI
	}
	if o.TokenURI == "" {
		o.TokenURI = googleTokenURI
	}
	if o.AuthProviderX509CertURL == "" {
		o.AuthProviderX509CertURL = googleCertsURL
	}
	if len(o.RedirectURIs) == 0 {
		o.RedirectURIs = []string{"http://localhost"}
	}
}
