//go:build integration
// +build integration

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/model-catalog/internal/service"
	"github.com/kjstillabower/model-catalog/internal/testhelpers"
	"github.com/kjstillabower/model-catalog/internal/visibility"
)

// TestCatalogService_LiveUpstream lists models from a real OpenAI-compatible
// endpoint and checks that nothing hidden or arena-owned comes back.
func TestCatalogService_LiveUpstream(t *testing.T) {
	cfg := testhelpers.GetIntegrationConfig(t)
	svc, cleanup := testhelpers.SetupIntegrationService(t, cfg)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	listing, err := svc.ListModels(ctx, service.ListOptions{})
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	for _, m := range listing.Models {
		if !visibility.Visible(m) {
			t.Errorf("listing contains excluded model %q", m.ID)
		}
	}
	t.Logf("upstream returned %d models, %d visible", listing.Total, len(listing.Models))

	again, err := svc.ListModels(ctx, service.ListOptions{})
	if err != nil {
		t.Fatalf("second ListModels() error = %v", err)
	}
	if !again.FetchedAt.Equal(listing.FetchedAt) {
		t.Error("second listing was not served from cache")
	}
}

func TestOpenAIClient_LivePing(t *testing.T) {
	cfg := testhelpers.GetIntegrationConfig(t)
	c := testhelpers.SetupIntegrationClient(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
