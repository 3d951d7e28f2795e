package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
)

func TestTranscriptFinalizerRulesFailure(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	f := newTranscriptFinalizer(&fakeRules{err: errors.New("rules")}, &fakeClipboard{}, nil, events, logger.NewNop())

	_, reason, err := f.Finalize(context.Background(), "raw", false)
	if err == nil {
		t.Fatalf("expected rules error")
	}
	if reason != domain.SessionReasonRulesFailed {
		t.Fatalf("unexpected reason: %s", reason)
	}
}

func TestTranscriptFinalizerClipboardFailure(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	clipboard := &fakeClipboard{err: errors.New("clipboard")}
	paster := &fakePaster{}
	f := newTranscriptFinalizer(&fakeRules{transform: "final"}, clipboard, paster, events, logger.NewNop())

	result, reason, err := f.Finalize(context.Background(), "raw", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Copied || result.Pasted {
		t.Fatalf("expected copied=false and no paste, got %+v", result)
	}
	if reason != domain.SessionReasonClipboardFailed {
		t.Fatalf("unexpected reason: %s", reason)
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeClipboard {
		t.Fatalf("expected clipboard error event, got %+v", errs)
	}
}

func TestTranscriptFinalizerCopiesAndPastes(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	clipboard := &fakeClipboard{}
	paster := &fakePaster{}
	f := newTranscriptFinalizer(&fakeRules{transform: "Hello."}, clipboard, paster, events, logger.NewNop())

	result, reason, err := f.Finalize(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != domain.SessionReasonTranscriptCopied || !result.Copied || !result.Pasted {
		t.Fatalf("unexpected result %+v (%s)", result, reason)
	}
	if clipboard.text() != "Hello." {
		t.Fatalf("clipboard did not receive transformed transcript: %q", clipboard.text())
	}

	waitFor(t, time.Second, func() bool { return paster.count() == 1 })

	transcripts := events.snapshotTranscripts()
	if len(transcripts) != 1 || !transcripts[0].final || transcripts[0].text != "Hello." {
		t.Fatalf("expected one final transcript update, got %+v", transcripts)
	}
}
