package config

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAppMetrics_Counters(t *testing.T) {
	metrics := NewAppMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	metrics.RecordTodoOperation(ctx, "create", "ok")
	metrics.RecordTodoOperation(ctx, "create", "ok")
	metrics.RecordTodoOperation(ctx, "update", "not_found")
	metrics.RecordToolInvocation(ctx, "create_todo")
	metrics.RecordRequest(ctx, "GET", "/todos", "200", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.todoOperations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.todoOperations.WithLabelValues("update", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolInvocations.WithLabelValues("create_todo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/todos", "200")))
}

func TestAppMetrics_ActiveConnections(t *testing.T) {
	metrics := NewAppMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	metrics.IncrementActiveConnections(ctx)
	metrics.IncrementActiveConnections(ctx)
	metrics.DecrementActiveConnections(ctx)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.activeConnections))
}
