// Package source loads the immunization record extract the audit runs
// against. The extract is a single JSON array fetched once at startup, from
// either a local file or an HTTP endpoint.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/immunization-audit-server/internal/domain"
)

// Loader resolves a dataset reference into the record collection. HTTP
// fetches go through a circuit breaker and a rate limiter so a flapping
// upstream cannot be hammered by restart loops.
type Loader struct {
	logger  *logrus.Logger
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	source  string
	retries int
}

// NewLoader creates a dataset loader for the configured source reference.
func NewLoader(cfg domain.DatasetConfig, logger *logrus.Logger) *Loader {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dataset-fetch",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Dataset fetch circuit breaker state changed")
		},
	})

	return &Loader{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		source:  cfg.Source,
		retries: cfg.FetchRetries,
	}
}

// Load reads and decodes the record collection. Missing fields on individual
// records are not errors; they decode to empty values and read as missing.
func (l *Loader) Load(ctx context.Context) ([]domain.ImmunizationRecord, error) {
	if l.source == "" {
		return nil, fmt.Errorf("dataset source is not configured")
	}

	var (
		raw []byte
		err error
	)
	if isHTTP(l.source) {
		raw, err = l.fetch(ctx)
	} else {
		raw, err = os.ReadFile(l.source)
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", l.source, err)
	}

	var records []domain.ImmunizationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"source":  l.source,
		"records": len(records),
	}).Info("Dataset loaded")

	return records, nil
}

// fetch retrieves the dataset over HTTP through the breaker, retrying
// transient failures up to the configured count.
func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	attempts := l.retries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := l.breaker.Execute(func() (interface{}, error) {
			return l.fetchOnce(ctx)
		})
		if err == nil {
			return body.([]byte), nil
		}

		lastErr = err
		l.logger.WithError(err).WithField("attempt", attempt+1).Warn("Dataset fetch failed")
	}

	return nil, lastErr
}

func (l *Loader) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
