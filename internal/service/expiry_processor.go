package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vogiaan1904/lobbydraft/config"
	"github.com/vogiaan1904/lobbydraft/internal/queue"
	repo "github.com/vogiaan1904/lobbydraft/internal/repository/redis"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

// ExpiryProcessor scans the expiry index and feeds due pick deadlines to
// each lobby's serializer. It never cancels anything: a deadline made
// stale by a pick or a close simply finds nothing to do.
type ExpiryProcessor interface {
	Start(ctx context.Context) error
	Stop() error
	ProcessDue(ctx context.Context) (int, error)
	GetStatus() ProcessorStatus
}

type ProcessorConfig struct {
	ScanInterval    time.Duration // How often to read the expiry index
	BatchSize       int64         // Max deadlines handled per scan
	Concurrency     int           // Lobbies expired in parallel
	JobTimeout      time.Duration // Max time for one lobby's expiry job
	ShutdownTimeout time.Duration // Max time to wait for graceful shutdown
}

type expiryProcessor struct {
	drafts   repo.DraftRepository
	draftSvc DraftService
	mgr      queue.Manager
	logger   logger.Logger

	config ProcessorConfig

	mu        sync.RWMutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	ticker    *time.Ticker
	wg        sync.WaitGroup

	lastProcessed  time.Time
	totalProcessed int64
	errorCount     int64

	now func() time.Time
}

func NewExpiryProcessor(
	drafts repo.DraftRepository,
	draftSvc DraftService,
	mgr queue.Manager,
	logger logger.Logger,
	cfg config.DraftConfig,
) ExpiryProcessor {
	return &expiryProcessor{
		drafts:   drafts,
		draftSvc: draftSvc,
		mgr:      mgr,
		logger:   logger,
		config: ProcessorConfig{
			ScanInterval:    cfg.ExpiryScanInterval,
			BatchSize:       100,
			Concurrency:     8,
			JobTimeout:      10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

func (p *expiryProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return ErrProcessorRunning
	}

	p.logger.Infof(ctx, "Starting expiry processor: interval=%s batch=%d", p.config.ScanInterval, p.config.BatchSize)

	p.isRunning = true
	p.startedAt = p.now()
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.config.ScanInterval)

	p.wg.Add(1)
	go p.processLoop(ctx, p.ticker, p.stopCh)

	return nil
}

func (p *expiryProcessor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return ErrProcessorNotRunning
	}

	p.logger.Info(context.Background(), "Stopping expiry processor...")

	close(p.stopCh)
	p.ticker.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info(context.Background(), "Expiry processor stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn(context.Background(), "Expiry processor shutdown timeout exceeded")
	}

	p.isRunning = false
	return nil
}

func (p *expiryProcessor) processLoop(ctx context.Context, ticker *time.Ticker, stopCh <-chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "Expiry processor stopped due to context cancellation")
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := p.ProcessDue(ctx); err != nil {
				p.logger.Errorf(ctx, "service.expiryProcessor.processLoop: %v", err)
			}
		}
	}
}

// ProcessDue handles every deadline that is due now and reports how many
// lobbies were visited.
func (p *expiryProcessor) ProcessDue(ctx context.Context) (int, error) {
	defer func() {
		p.mu.Lock()
		p.lastProcessed = p.now()
		p.mu.Unlock()
	}()

	due, err := p.drafts.DueExpiries(ctx, p.now(), p.config.BatchSize)
	if err != nil {
		p.incrementErrorCount()
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	p.logger.Debugf(ctx, "Processing %d due pick deadlines", len(due))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, e := range due {
		g.Go(func() error {
			jobCtx, cancel := context.WithTimeout(gctx, p.config.JobTimeout)
			defer cancel()

			err := p.mgr.Do(jobCtx, e.LobbyID, func(ctx context.Context) error {
				return p.draftSvc.Expire(ctx, e.LobbyID)
			})
			if err != nil {
				// One lobby failing must not stop the others.
				p.incrementErrorCount()
				p.logger.Errorf(ctx, "service.expiryProcessor.ProcessDue: lobby %s: %v", e.LobbyID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	p.totalProcessed += int64(len(due))
	p.mu.Unlock()

	return len(due), nil
}

func (p *expiryProcessor) incrementErrorCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorCount++
}

func (p *expiryProcessor) GetStatus() ProcessorStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProcessorStatus{
		IsRunning:      p.isRunning,
		StartedAt:      p.startedAt,
		LastProcessed:  p.lastProcessed,
		TotalProcessed: p.totalProcessed,
		ErrorCount:     p.errorCount,
	}
}
