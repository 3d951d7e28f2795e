package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

const defaultErrorThreshold = 3

var errUnknownProvider = errors.New("recognition provider is not registered")

// providerHealth persists across sessions for the lifetime of the process.
type providerHealth struct {
	consecutiveErrors int
	current           string
}

// failureOutcome tells the orchestrator how to continue after a backend failure.
type failureOutcome int

const (
	outcomeRetry failureOutcome = iota
	outcomeSwitched
	outcomeExhausted
)

// fallbackManager selects and switches recognition backends. It is mutated only by
// the orchestrator loop.
type fallbackManager struct {
	recognizers map[string]ports.Recognizer
	log         *logger.Logger

	override  domain.ProviderSelection
	selection domain.ProviderSelection
	primary   string
	secondary string

	errorThreshold      int
	confidenceThreshold float64

	health providerHealth
}

func newFallbackManager(recognizers []ports.Recognizer, log *logger.Logger) *fallbackManager {
	registry := make(map[string]ports.Recognizer, len(recognizers))
	for _, r := range recognizers {
		registry[r.ID()] = r
	}
	return &fallbackManager{recognizers: registry, log: log, errorThreshold: defaultErrorThreshold}
}

// beginSession applies the settings snapshot and deterministically picks the
// provider the session starts on.
func (m *fallbackManager) beginSession(settings domain.SessionSettings) string {
	selection := settings.Provider
	if m.override != "" {
		selection = m.override
	}
	if selection != m.selection || settings.PrimaryProvider != m.primary || settings.SecondaryProvider != m.secondary {
		if m.selection != "" {
			m.log.Info("Provider selection changed, resetting health",
				logger.String("from", string(m.selection)),
				logger.String("to", string(selection)))
		}
		m.health = providerHealth{}
	}
	m.selection = selection
	m.primary = settings.PrimaryProvider
	m.secondary = settings.SecondaryProvider

	m.errorThreshold = settings.ErrorThreshold
	if m.errorThreshold <= 0 {
		m.errorThreshold = defaultErrorThreshold
	}
	m.confidenceThreshold = settings.ConfidenceThreshold

	start := m.primary
	if selection == domain.ProviderCloud {
		start = m.secondary
	}
	if start != m.health.current {
		// The error count belongs to the provider it was recorded against.
		m.health = providerHealth{current: start}
	}
	return m.health.current
}

// selectProvider records a manual provider change. Health starts over.
func (m *fallbackManager) selectProvider(selection domain.ProviderSelection) {
	m.override = selection
	m.selection = selection
	m.health = providerHealth{current: m.health.current}
}

func (m *fallbackManager) active() string {
	return m.health.current
}

func (m *fallbackManager) canSwitch() bool {
	return m.selection == domain.ProviderHybrid && m.health.current != m.secondary && m.secondary != ""
}

// plan lists the start attempts still allowed: the active provider's remaining error
// budget, then the secondary when switching is possible.
func (m *fallbackManager) plan() []startStep {
	remaining := m.errorThreshold - m.health.consecutiveErrors
	if remaining < 1 {
		remaining = 1
	}
	steps := []startStep{{provider: m.health.current, attempts: remaining}}
	if m.canSwitch() {
		steps = append(steps, startStep{provider: m.secondary, attempts: m.errorThreshold})
	}
	return steps
}

// recordFailure counts one failure of provider and switches once the threshold is hit.
func (m *fallbackManager) recordFailure(provider string, err error) failureOutcome {
	if provider != m.health.current {
		return outcomeRetry
	}
	m.health.consecutiveErrors++
	m.log.Warn("Recognition provider failed",
		logger.String("provider", provider),
		logger.Int("consecutive_errors", m.health.consecutiveErrors),
		logger.Error(err))

	if m.health.consecutiveErrors < m.errorThreshold {
		return outcomeRetry
	}
	if m.canSwitch() {
		m.switchTo(m.secondary, "error threshold reached")
		return outcomeSwitched
	}
	return outcomeExhausted
}

// recordResult resets the error count and reports whether a low-confidence final
// result switched the provider.
func (m *fallbackManager) recordResult(ev domain.RecognitionEvent, caps ports.RecognizerCapabilities) bool {
	if ev.Err != nil {
		return false
	}
	m.health.consecutiveErrors = 0
	if !caps.ReportsConfidence || !(ev.IsFinal || ev.IsSegmentFinalized) || ev.Text == "" {
		return false
	}
	if ev.Confidence >= m.confidenceThreshold || !m.canSwitch() {
		return false
	}
	m.switchTo(m.secondary, fmt.Sprintf("confidence %.2f below %.2f", ev.Confidence, m.confidenceThreshold))
	return true
}

// adopt makes provider the active one after a start plan succeeded on it.
func (m *fallbackManager) adopt(provider string) {
	if provider != m.health.current {
		m.switchTo(provider, "started on fallback")
	}
}

func (m *fallbackManager) switchTo(provider string, why string) {
	m.log.Info("Switching recognition provider",
		logger.String("from", m.health.current),
		logger.String("to", provider),
		logger.String("reason", why))
	m.health = providerHealth{current: provider}
}

type startStep struct {
	provider string
	attempts int
}

type providerFailure struct {
	provider string
	err      error
}

type startOutcome struct {
	session  ports.RecognitionSession
	provider string
	caps     ports.RecognizerCapabilities
	failures []providerFailure
	err      error
}

// startRecognition executes a start plan off the loop. It never touches manager state;
// the failures it collects are applied by the loop afterwards.
func startRecognition(
	ctx context.Context,
	recognizers map[string]ports.Recognizer,
	steps []startStep,
	cfg ports.RecognitionConfig,
	retryInterval time.Duration,
) startOutcome {
	var out startOutcome
	for _, step := range steps {
		rec, ok := recognizers[step.provider]
		if !ok {
			err := fmt.Errorf("%w: %q", errUnknownProvider, step.provider)
			out.failures = append(out.failures, providerFailure{provider: step.provider, err: err})
			out.err = domain.Fatal(step.provider, err)
			continue
		}

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = retryInterval
		b.MaxInterval = 8 * retryInterval

		session, err := backoff.Retry(ctx, func() (ports.RecognitionSession, error) {
			s, err := rec.Start(ctx, cfg)
			if err != nil {
				out.failures = append(out.failures, providerFailure{provider: step.provider, err: err})
				if domain.IsFatal(err) {
					return nil, backoff.Permanent(err)
				}
				return nil, err
			}
			return s, nil
		}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(step.attempts)))
		if err == nil {
			out.session = session
			out.provider = step.provider
			out.caps = rec.Capabilities()
			out.err = nil
			return out
		}

		out.err = err
		if domain.IsFatal(err) || ctx.Err() != nil {
			return out
		}
	}
	if out.err == nil {
		out.err = errors.New("no recognition provider configured")
	}
	return out
}
