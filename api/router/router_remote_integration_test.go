package router

import (
	"bytes"
	"net/http"
	"testing"

	config "github.com/tbeaudouin05/subscription-reconciler/api/config"
)

// Remote HTTP integration tests against a deployed instance, skipped unless
// INTEGRATION_BASE_URL is set.

func remoteBaseURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
	ensureConfig(t)
	if config.AppConfig.IntegrationBaseURL == "" {
		t.Skip("INTEGRATION_BASE_URL not set")
	}
	return config.AppConfig.IntegrationBaseURL
}

func TestHealthz_Remote_Integration(t *testing.T) {
	base := remoteBaseURL(t)

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestCheckAccessHTTP_Remote_Integration(t *testing.T) {
	base := remoteBaseURL(t)

	resp, err := http.Post(base+"/api/check-access", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", resp.StatusCode)
	}
}

func TestReceiveStripeWebhookHTTP_Remote_Integration(t *testing.T) {
	base := remoteBaseURL(t)

	req, _ := http.NewRequest(http.MethodPost, base+"/api/stripe-webhooks", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	// Intentionally omit Stripe-Signature header to get an error response
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("expected non-200 when missing Stripe-Signature, got %d", resp.StatusCode)
	}
}
