package speech

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxkey/internal/domain"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	text := "Hello there.  How are you?\nFine!"
	spans := splitSentences(text)
	want := []span{{0, "Hello there."}, {14, "How are you?"}, {27, "Fine!"}}
	if len(spans) != len(want) {
		t.Fatalf("expected %d spans, got %+v", len(want), spans)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Fatalf("span %d: want %+v got %+v", i, want[i], spans[i])
		}
		if text[spans[i].offset:spans[i].offset+len(spans[i].text)] != spans[i].text {
			t.Fatalf("span %d does not point into the source text", i)
		}
	}
	if got := splitSentences("  \n "); len(got) != 0 {
		t.Fatalf("expected no spans for blank text, got %+v", got)
	}
}

func TestDefaultCommand(t *testing.T) {
	t.Parallel()

	if DefaultCommand("darwin") != "say" || DefaultCommand("linux") != "espeak-ng" {
		t.Fatalf("unexpected default commands")
	}
}

func TestSpeakEmitsProgressAndCompletion(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, "say.sh", "#!/usr/bin/env bash\nprintf '%s|' \"$@\" >> "+out+"\necho >> "+out+"\n")
	synth := NewCommandSynthesizer(Config{Command: script, Voice: "alex", Rate: 180}, nil)

	sess, err := synth.Speak(context.Background(), "One. Two.")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	events := collect(t, sess.Events())

	if len(events) != 3 {
		t.Fatalf("expected 2 progress events and completion, got %+v", events)
	}
	if events[0].Kind != domain.SynthesisProgress || events[0].Offset != 0 || events[0].Length != 4 {
		t.Fatalf("unexpected first progress: %+v", events[0])
	}
	if events[1].Kind != domain.SynthesisProgress || events[1].Offset != 5 {
		t.Fatalf("unexpected second progress: %+v", events[1])
	}
	if events[2].Kind != domain.SynthesisCompleted || events[2].Progress != 1 {
		t.Fatalf("unexpected completion: %+v", events[2])
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || lines[0] != "-v|alex|-s|180|--|One.|" || lines[1] != "-v|alex|-s|180|--|Two.|" {
		t.Fatalf("unexpected invocations: %q", lines)
	}
}

func TestSpeakFailureIsReported(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no voice' >&2\nexit 3\n")
	sess, err := NewCommandSynthesizer(Config{Command: script}, nil).Speak(context.Background(), "Hi.")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	events := collect(t, sess.Events())
	last := events[len(events)-1]
	if last.Err == nil || !strings.Contains(last.Err.Error(), "no voice") {
		t.Fatalf("expected error event with stderr, got %+v", events)
	}
}

func TestStopEndsSpeechWithoutCompletion(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "slow.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	sess, err := NewCommandSynthesizer(Config{Command: script}, nil).Speak(context.Background(), "A long sentence.")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}

	began := time.Now()
	if err := sess.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if time.Since(began) > 2*time.Second {
		t.Fatalf("stop did not interrupt the command")
	}
	for _, ev := range collect(t, sess.Events()) {
		if ev.Kind == domain.SynthesisCompleted || ev.Err != nil {
			t.Fatalf("unexpected terminal event after stop: %+v", ev)
		}
	}
}

func TestPauseHoldsSpeechUntilResume(t *testing.T) {
	t.Parallel()

	synth := NewCommandSynthesizer(Config{Command: writeScript(t, "quick.sh", "#!/usr/bin/env bash\nexec sleep 0.05\n")}, nil)
	if !synth.SupportsPause() {
		t.Skip("pause is not supported on this platform")
	}

	sess, err := synth.Speak(context.Background(), "First. Second. Third.")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if err := sess.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	for drained := false; !drained; {
		select {
		case ev, ok := <-sess.Events():
			if !ok || ev.Kind == domain.SynthesisCompleted {
				t.Fatalf("speech completed while paused")
			}
		default:
			drained = true
		}
	}

	if err := sess.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	events := collect(t, sess.Events())
	if len(events) == 0 || events[len(events)-1].Kind != domain.SynthesisCompleted {
		t.Fatalf("expected completion after resume, got %+v", events)
	}
}

func TestSpeakRejectsBlankText(t *testing.T) {
	t.Parallel()

	if _, err := NewCommandSynthesizer(Config{Command: "true"}, nil).Speak(context.Background(), "   "); err == nil {
		t.Fatalf("expected blank text to be rejected")
	}
}

func collect(t *testing.T, ch <-chan domain.SynthesisEvent) []domain.SynthesisEvent {
	t.Helper()
	var events []domain.SynthesisEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for speech events, got %+v", events)
		}
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
