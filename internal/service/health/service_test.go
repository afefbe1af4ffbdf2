package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
)

type staticChecker gateway.ComponentHealth

func (c staticChecker) Health(context.Context) gateway.ComponentHealth {
	return gateway.ComponentHealth(c)
}

func TestCheckAggregates(t *testing.T) {
	svc := NewService(staticChecker{OK: true, StatusCode: 200}, staticChecker{OK: false, Error: "refused"})

	report := svc.Check(context.Background(), Options{})
	assert.True(t, report.OK)
	assert.Len(t, report.Components, 1)

	report = svc.Check(context.Background(), Options{Embeddings: true})
	assert.False(t, report.OK)
	assert.Equal(t, "refused", report.Components["embeddings"].Error)
}

func TestCheckWithoutEmbeddingClient(t *testing.T) {
	report := NewService(staticChecker{OK: true}, nil).Check(context.Background(), Options{Embeddings: true})
	assert.False(t, report.OK)
	assert.Equal(t, "not configured", report.Components["embeddings"].Error)
}
