// Package ghstatus mirrors a deployment run onto a GitHub commit
// deployment so the result is visible on the commit and its pull
// requests. The mirror is optional and advisory: every failure in here is
// logged and swallowed, never allowed to fail the deployment itself.
package ghstatus

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v58/github"
	"github.com/rs/zerolog"

	"github.com/imranansari/codedeploy-task/config"
)

// ClientFactory creates GitHub clients authenticated as an App
// installation, resolving and caching the installation ID per owner.
type ClientFactory struct {
	cfg           config.GitHubConfig
	privateKey    []byte
	logger        zerolog.Logger
	installations map[string]int64
}

// NewClientFactory creates a client factory for the configured App.
func NewClientFactory(cfg config.GitHubConfig, privateKey []byte, logger zerolog.Logger) *ClientFactory {
	return &ClientFactory{
		cfg:           cfg,
		privateKey:    privateKey,
		logger:        logger,
		installations: make(map[string]int64),
	}
}

// ClientForOwner returns a client acting as the App installation on the
// given owner, discovering the installation on first use.
func (f *ClientFactory) ClientForOwner(ctx context.Context, owner string) (*github.Client, error) {
	if id, ok := f.installations[owner]; ok {
		return f.installationClient(id)
	}

	atr, err := ghinstallation.NewAppsTransport(http.DefaultTransport, f.cfg.AppID, f.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create app transport: %w", err)
	}
	if base := f.apiBase(); base != "" {
		atr.BaseURL = base
	}

	appClient, err := f.newClient(&http.Client{Transport: atr})
	if err != nil {
		return nil, err
	}

	installations, _, err := appClient.Apps.ListInstallations(ctx, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list app installations: %w", err)
	}

	var installationID int64
	for _, installation := range installations {
		if installation.Account.GetLogin() == owner {
			installationID = installation.GetID()
			break
		}
	}
	if installationID == 0 {
		return nil, fmt.Errorf("no installation of app %d found for owner %q", f.cfg.AppID, owner)
	}
	f.installations[owner] = installationID

	f.logger.Info().
		Int64("app_id", f.cfg.AppID).
		Int64("installation_id", installationID).
		Str("owner", owner).
		Msg("Resolved GitHub App installation")

	return f.installationClient(installationID)
}

// installationClient builds a client authenticated as one installation.
func (f *ClientFactory) installationClient(installationID int64) (*github.Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, f.cfg.AppID, installationID, f.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation transport: %w", err)
	}
	if base := f.apiBase(); base != "" {
		itr.BaseURL = base
	}
	return f.newClient(&http.Client{Transport: itr})
}

// apiBase returns the Enterprise REST base URL, or empty for github.com.
func (f *ClientFactory) apiBase() string {
	if f.cfg.EnterpriseURL == "" {
		return ""
	}
	return strings.TrimSuffix(f.cfg.EnterpriseURL, "/") + "/api/v3"
}

// newClient wraps the transport in a go-github client, pointing it at the
// Enterprise endpoints when one is configured.
func (f *ClientFactory) newClient(httpClient *http.Client) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if f.cfg.EnterpriseURL == "" {
		return client, nil
	}

	base := strings.TrimSuffix(f.cfg.EnterpriseURL, "/")
	client, err := client.WithEnterpriseURLs(base+"/api/v3/", base+"/api/uploads/")
	if err != nil {
		return nil, fmt.Errorf("invalid enterprise URL %q: %w", f.cfg.EnterpriseURL, err)
	}
	return client, nil
}
