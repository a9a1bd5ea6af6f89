package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	bootstrap "github.com/tbeaudouin05/subscription-reconciler/api/bootstrap"
	config "github.com/tbeaudouin05/subscription-reconciler/api/config"
)

func ensureConfig(t *testing.T) {
	t.Helper()
	if config.AppConfig == nil {
		cfg, err := config.LoadConfig()
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		config.AppConfig = cfg
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	// Use real bootstrap and services; router itself calls bootstrap.Ensure.
	ensureConfig(t)
	config.CheckNotProdDB()
	if bootstrap.GetBillingService() == nil {
		if err := bootstrap.Init(); err != nil {
			t.Fatalf("bootstrap init failed: %v", err)
		}
	}
	h := NewRouter()
	return httptest.NewServer(h)
}

func TestStartSubscriptionHTTP_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
	ts := newTestServer(t)
	defer ts.Close()

	// No bearer token: the route must refuse before touching the gateway
	payload := map[string]any{"paymentMethodId": ""}
	b, _ := json.Marshal(payload)
	resp, err := http.Post(ts.URL+"/api/subscription", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", resp.StatusCode)
	}
}

func TestCheckAccessHTTP_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/check-access", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("expected failure status without credentials, got %d", resp.StatusCode)
	}
}

func TestReceiveStripeWebhookHTTP_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
	ts := newTestServer(t)
	defer ts.Close()

	// No Stripe-Signature header on purpose, should fail
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.URL+"/api/stripe-webhooks", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 when missing Stripe-Signature, got %d", resp.StatusCode)
	}
}
