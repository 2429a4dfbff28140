package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"scamtrap-lab/internal/config"
	"scamtrap-lab/internal/domain/models"
	"scamtrap-lab/pkg/logger"
)

// ReportJournal persists delivered reports and delivery outcomes. Optional;
// a nil journal disables persistence.
type ReportJournal interface {
	RecordReport(ctx context.Context, report *models.FinalReport) error
	RecordDelivery(ctx context.Context, sessionID string, status models.DeliveryStatus, attempts int, lastError string) error
}

// EventPublisher announces session lifecycle events. Optional; a nil
// publisher disables eventing.
type EventPublisher interface {
	PublishScamDetected(ctx context.Context, sessionID string, score int, tags []string)
	PublishSessionFinalized(ctx context.Context, report *models.FinalReport)
}

// CallbackDispatcher delivers final reports to the platform callback URL.
// Finalization enqueues exactly one job per session; a fixed worker pool
// performs delivery with bounded retries and exponential backoff. Exhausted
// retries leave the session's delivery status failed for manual re-trigger.
type CallbackDispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
	store      *SessionStore
	journal    ReportJournal
	logger     *logger.Logger

	retry RetryConfig

	queue       chan *reportJob
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	workerCount int
}

// RetryConfig bounds delivery retries.
type RetryConfig struct {
	MaxRetries    int
	RetryInterval time.Duration
	BackoffFactor float64
	MaxRetryDelay time.Duration
}

type reportJob struct {
	report *models.FinalReport
}

// NewCallbackDispatcher creates a dispatcher and starts its workers.
func NewCallbackDispatcher(cfg config.CallbackConfig, store *SessionStore, journal ReportJournal, log *logger.Logger) *CallbackDispatcher {
	retry := RetryConfig{
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
		BackoffFactor: cfg.BackoffFactor,
		MaxRetryDelay: cfg.MaxRetryDelay,
	}
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 3
	}
	if retry.RetryInterval <= 0 {
		retry.RetryInterval = 2 * time.Second
	}
	if retry.BackoffFactor <= 1 {
		retry.BackoffFactor = 2.0
	}
	if retry.MaxRetryDelay <= 0 {
		retry.MaxRetryDelay = 30 * time.Second
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &CallbackDispatcher{
		url:    cfg.URL,
		secret: cfg.Secret,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		store:       store,
		journal:     journal,
		logger:      log.WithComponent("callback-dispatcher"),
		retry:       retry,
		queue:       make(chan *reportJob, queueSize),
		stopCh:      make(chan struct{}),
		workerCount: workers,
	}
	d.startWorkers()
	return d
}

func (d *CallbackDispatcher) startWorkers() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.deliveryWorker(i)
	}
	d.logger.Info().Int("workers", d.workerCount).Msg("callback delivery workers started")
}

func (d *CallbackDispatcher) deliveryWorker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			// Finish whatever is still queued before exiting.
			for {
				select {
				case job := <-d.queue:
					d.deliver(job)
				default:
					d.logger.Debug().Int("worker", id).Msg("callback worker stopping")
					return
				}
			}
		case job := <-d.queue:
			d.deliver(job)
		}
	}
}

// Stop shuts the workers down after draining queued deliveries. Safe to call
// more than once.
func (d *CallbackDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
		d.logger.Info().Msg("callback dispatcher stopped")
	})
}

// Enqueue schedules a report for delivery. The session's delivery status is
// set to pending; a full queue fails the session's delivery immediately so
// it can be re-triggered manually.
func (d *CallbackDispatcher) Enqueue(report *models.FinalReport) {
	d.markDelivery(report.SessionID, models.DeliveryPending, 0, "")

	select {
	case d.queue <- &reportJob{report: report}:
	default:
		d.logger.Error().Str("session_id", report.SessionID).Msg("callback queue full, delivery failed")
		d.markDelivery(report.SessionID, models.DeliveryFailed, 0, "delivery queue full")
	}
}

func (d *CallbackDispatcher) deliver(job *reportJob) {
	report := job.report
	log := d.logger.WithSessionID(report.SessionID)

	if d.url == "" {
		log.Warn().Msg("no callback URL configured, report not delivered")
		d.markDelivery(report.SessionID, models.DeliveryFailed, 0, "callback URL not configured")
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal final report")
		d.markDelivery(report.SessionID, models.DeliveryFailed, 0, err.Error())
		return
	}

	var lastErr string
	for attempt := 1; attempt <= d.retry.MaxRetries; attempt++ {
		err := d.post(payload, report.SessionID)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("final report delivered")
			d.markDelivery(report.SessionID, models.DeliveryDelivered, attempt, "")
			if d.journal != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if jerr := d.journal.RecordReport(ctx, report); jerr != nil {
					log.Warn().Err(jerr).Msg("failed to journal report")
				}
				if jerr := d.journal.RecordDelivery(ctx, report.SessionID, models.DeliveryDelivered, attempt, ""); jerr != nil {
					log.Warn().Err(jerr).Msg("failed to journal delivery")
				}
				cancel()
			}
			return
		}

		lastErr = err.Error()
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", d.retry.MaxRetries).
			Msg("callback delivery failed")

		if attempt < d.retry.MaxRetries {
			if !d.sleep(d.backoff(attempt)) {
				log.Warn().Int("attempt", attempt).Msg("shutdown interrupted callback retries")
				d.markDelivery(report.SessionID, models.DeliveryFailed, attempt, lastErr)
				return
			}
		}
	}

	log.Error().Str("last_error", lastErr).Msg("callback delivery exhausted retries")
	d.markDelivery(report.SessionID, models.DeliveryFailed, d.retry.MaxRetries, lastErr)
	if d.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if jerr := d.journal.RecordDelivery(ctx, report.SessionID, models.DeliveryFailed, d.retry.MaxRetries, lastErr); jerr != nil {
			log.Warn().Err(jerr).Msg("failed to journal delivery")
		}
		cancel()
	}
}

func (d *CallbackDispatcher) post(payload []byte, sessionID string) error {
	req, err := http.NewRequest(http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ScamTrap-Callback/1.0")
	req.Header.Set("X-Session-ID", sessionID)
	req.Header.Set("X-Callback-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if d.secret != "" {
		req.Header.Set("X-Honeypot-Signature", "sha256="+signPayload(payload, d.secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
}

// backoff computes the delay before the next attempt, exponential in the
// attempt number and capped at MaxRetryDelay.
func (d *CallbackDispatcher) backoff(attempt int) time.Duration {
	delay := d.retry.RetryInterval
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * d.retry.BackoffFactor)
	}
	if delay > d.retry.MaxRetryDelay {
		delay = d.retry.MaxRetryDelay
	}
	return delay
}

// sleep waits for the given duration unless the dispatcher is stopping.
func (d *CallbackDispatcher) sleep(delay time.Duration) bool {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-d.stopCh:
		return false
	case <-t.C:
		return true
	}
}

func (d *CallbackDispatcher) markDelivery(sessionID string, status models.DeliveryStatus, attempts int, lastErr string) {
	err := d.store.Update(sessionID, false, func(s *models.Session) error {
		s.Delivery.Status = status
		if attempts > 0 {
			s.Delivery.Attempts = attempts
		}
		s.Delivery.LastError = lastErr
		if status == models.DeliveryDelivered {
			now := time.Now().UTC()
			s.Delivery.DeliveredAt = &now
		}
		return nil
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record delivery status")
	}
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
