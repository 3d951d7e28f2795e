package usecase

import (
	"context"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

// transcriptFinalizer delivers a finished transcript: rules, clipboard, optional paste.
type transcriptFinalizer struct {
	rules     ports.RulesEngine
	clipboard ports.Clipboard
	paster    ports.Paster
	events    ports.EventSink
	log       *logger.Logger
}

func newTranscriptFinalizer(
	rules ports.RulesEngine,
	clipboard ports.Clipboard,
	paster ports.Paster,
	events ports.EventSink,
	log *logger.Logger,
) transcriptFinalizer {
	return transcriptFinalizer{rules: rules, clipboard: clipboard, paster: paster, events: events, log: log}
}

func (f transcriptFinalizer) Finalize(ctx context.Context, raw string, autoPaste bool) (domain.StopResult, domain.SessionStateReason, error) {
	transformed := raw
	if f.rules != nil {
		var err error
		transformed, err = f.rules.Apply(raw)
		if err != nil {
			f.events.SessionError(domain.ErrorCodeRules, err.Error())
			return domain.StopResult{RawTranscript: raw}, domain.SessionReasonRulesFailed, err
		}
	}

	result := domain.StopResult{
		RawTranscript:   raw,
		FinalTranscript: transformed,
		Copied:          true,
	}
	reason := domain.SessionReasonTranscriptCopied

	if err := f.clipboard.SetText(ctx, transformed); err != nil {
		result.Copied = false
		reason = domain.SessionReasonClipboardFailed
		f.log.Warn("Clipboard write failed", logger.Error(err))
		f.events.SessionError(domain.ErrorCodeClipboard, "transcript ready but clipboard write failed")
	}
	f.events.TranscriptUpdated(transformed, true)

	if result.Copied && autoPaste && f.paster != nil {
		result.Pasted = true
		go func() {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("Paste simulation panicked", logger.Any("panic", r))
				}
			}()
			if !f.paster.SimulatePaste() {
				f.log.Warn("Paste simulation failed")
			}
		}()
	}

	return result, reason, nil
}
