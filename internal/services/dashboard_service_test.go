package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttl = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestDashboardService_Summary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sale := env.createSale(t, 10)
	env.createLot(t, "B", "1", "8000")
	installments := env.schedule(t, sale.ID)

	_, err := env.svc.Payment.RegisterPayment(ctx, installments[0].ID, RegisterPaymentInput{Amount: dec("1000")}, env.actor)
	require.NoError(t, err)

	cache := newMemoryCache()
	dashboard := NewDashboardService(env.repos, cache, 5*time.Minute, FixedClock{At: testNow}, env.metrics)

	summary, err := dashboard.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalCustomers)
	assert.Equal(t, int64(2), summary.TotalLots)
	assert.Equal(t, int64(1), summary.AvailableLots)
	assert.Equal(t, int64(1), summary.SoldLots)
	assert.Equal(t, int64(1), summary.ActiveSales)
	require.Len(t, summary.RecentPayments, 1)
	assert.Equal(t, "María Gómez", summary.RecentPayments[0].CustomerName)
	require.Len(t, summary.UpcomingInstallments, 5)
	assert.Equal(t, 2, summary.UpcomingInstallments[0].InstallmentNumber)
	assert.Equal(t, "Manzana A, Lote 1", summary.UpcomingInstallments[0].LotDisplay)
	assert.Equal(t, 5*time.Minute, cache.ttl)

	_, err = dashboard.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DashboardCache.WithLabelValues("hit")))

	require.NoError(t, dashboard.Invalidate(ctx))
	_, err = dashboard.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.DashboardCache.WithLabelValues("miss")))
}
