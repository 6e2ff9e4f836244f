package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser accepts 5-field and 6-field expressions as well as descriptors like "@every 1h"
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// TokenPruner deletes device tokens that stayed inactive since cutoff
type TokenPruner interface {
	PruneInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config configures the maintenance scheduler
type Config struct {
	PruneSpec      string
	TokenRetention time.Duration
	JobTimeout     time.Duration
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron   *cron.Cron
	tokens TokenPruner
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a scheduler and registers its jobs. Jobs run only after Start.
func New(tokens TokenPruner, config Config, logger *zap.Logger) (*Scheduler, error) {
	if config.JobTimeout <= 0 {
		config.JobTimeout = time.Minute
	}
	if config.TokenRetention <= 0 {
		return nil, fmt.Errorf("token retention must be positive")
	}

	logger = logger.Named("scheduler")
	s := &Scheduler{
		tokens: tokens,
		config: config,
		logger: logger,
		now:    time.Now,
	}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(
			cron.Recover(cronLogger{logger.Sugar()}),
			cron.SkipIfStillRunning(cronLogger{logger.Sugar()}),
		),
	)

	if _, err := s.cron.AddFunc(config.PruneSpec, s.pruneJob); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", config.PruneSpec, err)
	}
	return s, nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("pruneSpec", s.config.PruneSpec))
}

// Stop stops scheduling and waits for a running job until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with a job still running")
	}
}

// PruneTokens deletes inactive device tokens older than the retention window
func (s *Scheduler) PruneTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.TokenRetention)
	n, err := s.tokens.PruneInactive(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Pruned inactive device tokens",
			zap.Int64("count", n),
			zap.Time("cutoff", cutoff),
		)
	}
	return n, nil
}

func (s *Scheduler) pruneJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()

	if _, err := s.PruneTokens(ctx); err != nil {
		s.logger.Error("Failed to prune device tokens", zap.Error(err))
	}
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
