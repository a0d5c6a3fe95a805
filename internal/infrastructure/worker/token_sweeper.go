package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
)

// TokenSweeperConfig holds configuration for the token sweeper
type TokenSweeperConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultTokenSweeperConfig returns default configuration
func DefaultTokenSweeperConfig() TokenSweeperConfig {
	return TokenSweeperConfig{
		Interval: time.Minute,
		Timeout:  10 * time.Second,
	}
}

// TokenSweeper drops action tokens nobody consumed before they expired
type TokenSweeper struct {
	config TokenSweeperConfig
	tokens port.TokenStore
	clock  func() time.Time
	logger *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	purged    int
	lastError error
}

// NewTokenSweeper creates a new token sweeper
func NewTokenSweeper(config TokenSweeperConfig, tokens port.TokenStore, logger *zap.Logger) *TokenSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultTokenSweeperConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTokenSweeperConfig().Timeout
	}
	return &TokenSweeper{
		config: config,
		tokens: tokens,
		clock:  time.Now,
		logger: logger,
	}
}

// Start begins sweeping on the configured interval
func (w *TokenSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("token sweeper already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("TokenSweeper started", zap.Duration("interval", w.config.Interval))
	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for a running sweep to finish
func (w *TokenSweeper) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("TokenSweeper stopped", zap.Int("purged", w.Purged()))
	return nil
}

// Name returns the worker name for identification
func (w *TokenSweeper) Name() string {
	return "TokenSweeper"
}

// Sweep purges expired tokens once
func (w *TokenSweeper) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	n, err := w.tokens.PurgeExpired(ctx, w.clock())

	w.mu.Lock()
	w.purged += n
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		return n, fmt.Errorf("failed to purge expired tokens: %w", err)
	}
	if n > 0 {
		w.logger.Debug("Expired tokens purged", zap.Int("count", n))
	}
	return n, nil
}

// Purged returns the number of tokens removed since start
func (w *TokenSweeper) Purged() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.purged
}

// LastError returns the error of the most recent sweep
func (w *TokenSweeper) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

func (w *TokenSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("Token sweep failed", zap.Error(err))
			}
		}
	}
}
