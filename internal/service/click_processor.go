package service

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"go.uber.org/zap"
)

// Значения worker pool по умолчанию
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	defaultClickTimeout  = 5 * time.Second
)

// ClickProcessor интерфейс для асинхронного обновления счётчика кликов
type ClickProcessor interface {
	Start()
	Stop()
	Dispatch(key string, clicks int64)
	Stats() models.ClickQueueStats
}

type ClickProcessorConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// clickProcessor реализация процессора кликов с использованием Worker Pool
type clickProcessor struct {
	linkRepo     repository.LinkRepository
	logger       *zap.Logger
	metrics      *Metrics
	clickChannel chan *models.ClickEvent // Канал для событий кликов
	workerCount  int                     // Количество воркеров
	timeout      time.Duration           // Таймаут одного обновления
	wg           sync.WaitGroup          // WaitGroup для ожидания завершения воркеров

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(
	linkRepo repository.LinkRepository,
	cfg ClickProcessorConfig,
	logger *zap.Logger,
	metrics *Metrics,
) ClickProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultChannelBuffer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultClickTimeout
	}

	return &clickProcessor{
		linkRepo:     linkRepo,
		logger:       logger,
		metrics:      metrics,
		clickChannel: make(chan *models.ClickEvent, cfg.QueueSize),
		workerCount:  cfg.Workers,
		timeout:      cfg.Timeout,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop прекращает приём событий, дожидается обработки очереди и завершения воркеров
func (p *clickProcessor) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.clickChannel)
	p.mu.Unlock()

	p.logger.Info("Остановка процессора кликов...")
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает события кликов из канала до его закрытия
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for event := range p.clickChannel {
		p.processClick(event)
	}

	p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
}

// processClick увеличивает счётчик на единицу. Без повторов: ошибка только логируется.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	if event.Clicks <= 0 {
		p.metrics.clickUpdate("skipped")
		return
	}

	// Контекст не связан с запросом: клиент мог уже отключиться
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.linkRepo.IncrementClicks(ctx, event.Key, 1); err != nil {
		p.metrics.clickUpdate("failed")
		p.logger.Error("Не удалось обновить счётчик кликов",
			zap.String("key", event.Key),
			zap.Error(err),
		)
		return
	}

	p.metrics.clickUpdate("ok")
}

// Dispatch отправляет событие клика в worker pool (неблокирующая операция)
func (p *clickProcessor) Dispatch(key string, clicks int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.clickUpdate("dropped")
		p.logger.Warn("Процессор кликов остановлен, событие потеряно", zap.String("key", key))
		return
	}

	select {
	case p.clickChannel <- &models.ClickEvent{Key: key, Clicks: clicks}:
	default:
		// Канал заполнен, не блокируем запрос, просто теряем статистику
		p.metrics.clickUpdate("dropped")
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно", zap.String("key", key))
	}
}

// Stats возвращает состояние очереди для мониторинга
func (p *clickProcessor) Stats() models.ClickQueueStats {
	return models.ClickQueueStats{
		BufferSize:  cap(p.clickChannel),
		BufferUsed:  len(p.clickChannel),
		WorkerCount: p.workerCount,
	}
}
