package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-github/v58/github"

	"github.com/imranansari/codedeploy-task/config"
)

// Verifies the GitHub App credentials behind the deployment-status
// mirror: parses the private key, mints an App JWT, then lists the App's
// installations so the owner in GITHUB_OWNER can be checked against them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.GitHub.StatusEnabled() {
		log.Fatal("GITHUB_APP_ID not set")
	}

	key := parseKey(cfg.Secrets.GitHubPrivateKey)
	log.Printf("✓ Parsed private key (%d bits)", key.Size()*8)

	mintJWT(key, cfg.GitHub.AppID)

	listInstallations(cfg)
}

func parseKey(data []byte) *rsa.PrivateKey {
	block, _ := pem.Decode(data)
	if block == nil {
		log.Fatal("Failed to decode PEM block")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		log.Println("✓ PKCS1 private key")
		return key
	}

	keyInterface, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err2 != nil {
		log.Fatalf("Failed to parse private key:\nPKCS1 error: %v\nPKCS8 error: %v", err, err2)
	}
	rsaKey, ok := keyInterface.(*rsa.PrivateKey)
	if !ok {
		log.Fatal("Private key is not RSA")
	}
	log.Println("✓ PKCS8 private key")
	return rsaKey
}

// mintJWT signs a short-lived App JWT the way the installation transport
// does, to isolate signing problems from API problems.
func mintJWT(key *rsa.PrivateKey, appID int64) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		log.Fatalf("Failed to sign App JWT: %v", err)
	}
	log.Printf("✓ Minted App JWT (%d chars)", len(tokenString))
}

func listInstallations(cfg *config.Config) {
	atr, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.GitHub.AppID, cfg.Secrets.GitHubPrivateKey)
	if err != nil {
		log.Fatalf("Failed to create app transport: %v", err)
	}

	client := github.NewClient(&http.Client{Transport: atr})
	if cfg.GitHub.EnterpriseURL != "" {
		base := strings.TrimSuffix(cfg.GitHub.EnterpriseURL, "/")
		atr.BaseURL = base + "/api/v3"
		client, err = client.WithEnterpriseURLs(base+"/api/v3/", base+"/api/uploads/")
		if err != nil {
			log.Fatalf("Invalid enterprise URL: %v", err)
		}
	}

	installations, _, err := client.Apps.ListInstallations(context.Background(), &github.ListOptions{PerPage: 100})
	if err != nil {
		log.Fatalf("Failed to list installations: %v", err)
	}

	log.Printf("✓ App %d has %d installation(s):", cfg.GitHub.AppID, len(installations))
	for _, installation := range installations {
		marker := " "
		if installation.Account.GetLogin() == cfg.GitHub.Owner {
			marker = "*"
		}
		log.Printf("  %s %d  %s", marker, installation.GetID(), installation.Account.GetLogin())
	}
}
