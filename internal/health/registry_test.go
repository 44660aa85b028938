package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryCheck(t *testing.T) {
	r := NewRegistry()
	r.Register("store", CheckerFunc(func(context.Context) error { return nil }))
	r.Register("redis", CheckerFunc(func(context.Context) error { return errors.New("connection refused") }))

	assert.Equal(t, []string{"redis", "store"}, r.List())

	report := r.Check(context.Background())
	assert.False(t, report.Healthy)
	assert.Equal(t, "ok", report.Checks["store"])
	assert.Equal(t, "connection refused", report.Checks["redis"])

	r.Unregister("redis")
	report = r.Check(context.Background())
	assert.True(t, report.Healthy)
	assert.Len(t, report.Checks, 1)
}

func TestEmptyRegistryIsHealthy(t *testing.T) {
	report := NewRegistry().Check(context.Background())
	assert.True(t, report.Healthy)
	assert.Empty(t, report.Checks)
}
