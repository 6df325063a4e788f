package test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

const panelURL = "http://localhost:8080"

// Smoke test against a running panel. Skips when nothing listens locally.
func TestAPI(t *testing.T) {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(panelURL + "/health")
	if err != nil {
		t.Skipf("panel not running: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", resp.Status)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", health["status"])
	}

	resp, err = client.Get(panelURL + "/api/v1/orders?status=Delivered")
	if err != nil {
		t.Fatalf("Failed to list orders: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadGateway {
		t.Errorf("Unexpected status listing orders: %v", resp.Status)
	}
}
