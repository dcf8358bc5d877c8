package router

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The published contract must stay a valid OpenAPI 3 document and keep
// covering every route the router installs.
func TestOpenAPIDocument(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	paths := []string{
		"/webhooks/paywithaccount",
		"/goals",
		"/goals/{id}",
		"/goals/{id}/pause",
		"/goals/{id}/resume",
		"/goals/{id}/summary",
		"/collections",
		"/collections/{id}",
		"/collections/{id}/status",
		"/collections/{id}/validate",
		"/collections/{id}/query-status",
		"/transactions",
		"/admin/webhook-events",
		"/admin/webhook-events/{id}",
		"/admin/webhook-events/{id}/requeue",
		"/admin/collections/{id}/override",
		"/admin/queue/stats",
	}
	for _, p := range paths {
		assert.NotNil(t, doc.Paths.Value(p), "path %s missing from openapi.yml", p)
	}

	// Admin surface must declare its API key scheme.
	require.NotNil(t, doc.Components)
	assert.Contains(t, doc.Components.SecuritySchemes, "AdminApiKey")
}
