package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/SergeiKhy/shortlink/internal/service/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickProcessor_ConcurrentDispatch(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.Put(&models.Link{Key: "hot", URL: "https://example.com", Clicks: 5})

	proc := service.NewClickProcessor(linkRepo, service.ClickProcessorConfig{Workers: 4, QueueSize: 200}, nil, nil)
	proc.Start()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			proc.Dispatch("hot", 6)
		}()
	}
	wg.Wait()

	// Stop дожидается обработки очереди
	proc.Stop()

	link, err := linkRepo.FindByKey(context.Background(), "hot")
	require.NoError(t, err)
	assert.Equal(t, int64(105), link.Clicks)
}

func TestClickProcessor_DropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.Put(&models.Link{Key: "abc", URL: "https://example.com"})

	// Воркеры не запущены, очередь на одно событие
	proc := service.NewClickProcessor(linkRepo, service.ClickProcessorConfig{Workers: 1, QueueSize: 1}, nil, metrics)

	proc.Dispatch("abc", 1)
	proc.Dispatch("abc", 1)
	proc.Dispatch("abc", 1)

	stats := proc.Stats()
	assert.Equal(t, 1, stats.BufferSize)
	assert.Equal(t, 1, stats.BufferUsed)
	assert.Equal(t, 1, stats.WorkerCount)

	proc.Start()
	proc.Stop()

	link, err := linkRepo.FindByKey(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.Clicks)

	// ok и dropped
	count, err := testutil.GatherAndCount(reg, "shortlink_click_updates_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClickProcessor_AfterStop(t *testing.T) {
	linkRepo := mocks.NewMockLinkRepository()
	linkRepo.Put(&models.Link{Key: "abc", URL: "https://example.com"})

	proc := service.NewClickProcessor(linkRepo, service.ClickProcessorConfig{}, nil, nil)
	proc.Start()
	proc.Stop()

	// Не паникует и не блокирует после остановки
	proc.Dispatch("abc", 1)
	proc.Stop()

	link, err := linkRepo.FindByKey(context.Background(), "abc")
	require.NoError(t, err)
	assert.Zero(t, link.Clicks)
}

func TestClickProcessor_FailureIsSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)

	proc := service.NewClickProcessor(mocks.NewMockLinkRepository(), service.ClickProcessorConfig{Workers: 1}, nil, metrics)
	proc.Start()
	proc.Dispatch("missing", 1)
	proc.Dispatch("skipped", 0)
	proc.Stop()

	// failed и skipped
	count, err := testutil.GatherAndCount(reg, "shortlink_click_updates_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
