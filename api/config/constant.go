package config

import (
	"log"
	"strings"
	"time"
)

const (
	// ProdDbId is the identifier for the production database
	ProdDbId = "old-cloud"

	// DefaultTrialDays applies when the plan price carries no trial length.
	DefaultTrialDays = 7

	DefaultDBMaxOpenConns    = 10
	DefaultGatewayMaxRetries = 2
	DefaultGatewayTimeout    = 15 * time.Second
	// Stripe gives up on an endpoint that does not answer within its delivery deadline.
	DefaultWebhookTimeout = 20 * time.Second
	// Longer than the gateway's redelivery window.
	DefaultEventRetention = 72 * time.Hour
)

// CheckNotProdDB aborts immediately if the configured database URL contains ProdDbId.
// This should be called at the start of any test that interacts with the database.
func CheckNotProdDB() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DatabaseURL is not configured")
	}
	if strings.Contains(cfg.DatabaseURL, ProdDbId) {
		log.Fatalf("Tests aborted: DatabaseURL contains production identifier %s", ProdDbId)
	}
}
