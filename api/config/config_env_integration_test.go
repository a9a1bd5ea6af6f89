package config

import (
	"strings"
	"testing"
)

// TestLoadConfig_Environment_Integration checks the deployment environment: required
// variables are present and live gateway keys are only configured for production.
// It is skipped in -short mode.
func TestLoadConfig_Environment_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping environment config test in -short mode")
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if strings.HasPrefix(cfg.StripeSecretKey, "sk_live_") && !cfg.IsProduction() {
		t.Fatalf("live Stripe key configured for APP_ENV=%q", cfg.AppEnv)
	}
}
