package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CampaignID(ctx))
	assert.Empty(t, NodeID(ctx))

	ctx = WithCampaignID(ctx, "camp-1")
	ctx = WithNodeID(ctx, "node-1")
	assert.Equal(t, "camp-1", CampaignID(ctx))
	assert.Equal(t, "node-1", NodeID(ctx))
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithNodeID(WithCampaignID(context.Background(), "camp-1"), "node-1")
	logger.InfoContext(ctx, "edge added")

	out := buf.String()
	assert.Contains(t, out, "campaign_id=camp-1")
	assert.Contains(t, out, "node_id=node-1")
}

func TestCorrelationHandler_PlainContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("no correlation")

	out := buf.String()
	assert.NotContains(t, out, "campaign_id")
	assert.NotContains(t, out, "node_id")
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithCampaignID(context.Background(), "camp-1")
	LogWith(ctx, logger).Info("saved")

	assert.Contains(t, buf.String(), "campaign_id=camp-1")
}
