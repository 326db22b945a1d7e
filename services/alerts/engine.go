package alerts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"marketglimpse_backend/models"
	"marketglimpse_backend/services/finnhub"
	"marketglimpse_backend/services/mailer"
)

// ErrRunInProgress is returned by TryRun when an evaluation pass is already
// executing in this process.
var ErrRunInProgress = errors.New("alert check already running")

// defaultConcurrency bounds the per-run fan-out over alerts.
const defaultConcurrency = 8

// AlertSource is the engine's view of the alert store.
type AlertSource interface {
	FindPending(ctx context.Context) ([]models.PriceAlert, error)
	MarkTriggered(ctx context.Context, id primitive.ObjectID, triggeredAt time.Time) error
}

// PriceSource fetches live quotes.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (*finnhub.Quote, error)
}

// Notifier delivers triggered-alert notifications.
type Notifier interface {
	SendPriceAlert(data mailer.PriceAlertEmail) error
}

// Summary aggregates one evaluation run for observability. It has no durable
// effect.
type Summary struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Errors    int `json:"errors"`
}

// Engine evaluates pending price alerts against live quotes. Each run
// snapshots alerts that are active and untriggered, fans out over them, and
// persists the one-way PENDING -> TRIGGERED transition before attempting a
// best-effort email.
//
// Runs within one process are serialized by an internal lock. Across
// processes two overlapping runs could still both load the same pending
// alert and double-send its notification; the store update carries no
// compare-and-swap. Deployments running multiple replicas need an external
// single-flight guard around the job.
type Engine struct {
	store       AlertSource
	prices      PriceSource
	notifier    Notifier
	logger      zerolog.Logger
	concurrency int
	now         func() time.Time

	runMu sync.Mutex
}

// NewEngine creates an alert evaluation engine.
func NewEngine(store AlertSource, prices PriceSource, notifier Notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		store:       store,
		prices:      prices,
		notifier:    notifier,
		logger:      logger.With().Str("component", "alert_engine").Logger(),
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
}

// Run executes one evaluation pass, waiting for any in-flight pass to finish
// first. A store failure loading alerts aborts the run; nothing was mutated,
// so the next scheduled pass simply retries.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.run(ctx)
}

// TryRun executes one evaluation pass unless one is already in flight, in
// which case it returns ErrRunInProgress. Used by the manual trigger path so
// a human cannot stack runs on top of the schedule.
func (e *Engine) TryRun(ctx context.Context) (Summary, error) {
	if !e.runMu.TryLock() {
		return Summary{}, ErrRunInProgress
	}
	defer e.runMu.Unlock()
	return e.run(ctx)
}

func (e *Engine) run(ctx context.Context) (Summary, error) {
	start := e.now()

	alerts, err := e.store.FindPending(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to load pending alerts")
		return Summary{}, err
	}

	e.logger.Info().Int("count", len(alerts)).Msg("checking price alerts")

	var triggered, errorCount atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, alert := range alerts {
		alert := alert
		g.Go(func() error {
			// One alert's panic must not take down its siblings.
			defer func() {
				if r := recover(); r != nil {
					errorCount.Add(1)
					e.logger.Error().Str("symbol", alert.Symbol).Interface("panic", r).
						Msg("alert evaluation panicked")
				}
			}()

			switch e.evaluate(ctx, alert) {
			case outcomeTriggered:
				triggered.Add(1)
			case outcomeError:
				errorCount.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	summary := Summary{
		Checked:   len(alerts),
		Triggered: int(triggered.Load()),
		Errors:    int(errorCount.Load()),
	}

	e.logger.Info().
		Int("checked", summary.Checked).
		Int("triggered", summary.Triggered).
		Int("errors", summary.Errors).
		Dur("duration", e.now().Sub(start)).
		Msg("price alert check completed")

	return summary, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeTriggered
	outcomeError
)

// evaluate processes one alert. A missing price or a failed trigger update
// leaves the alert pending for the next run; a failed email does not, since
// the trigger was already persisted and re-sending duplicate alert emails is
// worse than occasionally missing one.
func (e *Engine) evaluate(ctx context.Context, alert models.PriceAlert) outcome {
	quote, err := e.prices.Quote(ctx, alert.Symbol)
	if err != nil {
		e.logger.Warn().Str("symbol", alert.Symbol).Err(err).Msg("could not fetch price for alert")
		return outcomeError
	}

	current := decimal.NewFromFloat(quote.Current)
	target := decimal.NewFromFloat(alert.TargetPrice)

	shouldTrigger := false
	switch alert.Condition {
	case models.ConditionAbove:
		shouldTrigger = current.GreaterThanOrEqual(target)
	case models.ConditionBelow:
		shouldTrigger = current.LessThanOrEqual(target)
	}
	if !shouldTrigger {
		return outcomeSkipped
	}

	if err := e.store.MarkTriggered(ctx, alert.ID, e.now()); err != nil {
		e.logger.Error().Str("symbol", alert.Symbol).Err(err).Msg("failed to persist alert trigger")
		return outcomeError
	}

	// Trigger state is committed; the email is a best-effort side effect.
	if alert.UserEmail != "" {
		err := e.notifier.SendPriceAlert(mailer.PriceAlertEmail{
			RecipientEmail: alert.UserEmail,
			Symbol:         alert.Symbol,
			Company:        alert.Company,
			CurrentPrice:   current,
			TargetPrice:    target,
			Condition:      alert.Condition,
		})
		if err != nil {
			e.logger.Error().Str("symbol", alert.Symbol).Err(err).Msg("failed to send alert email")
		}
	}

	e.logger.Info().
		Str("symbol", alert.Symbol).
		Str("condition", alert.Condition).
		Str("target", target.StringFixed(2)).
		Str("current", current.StringFixed(2)).
		Msg("alert triggered")

	return outcomeTriggered
}
