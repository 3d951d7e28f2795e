package usecase

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
)

func TestPumpAudioChunksReportsReadError(t *testing.T) {
	t.Parallel()

	audio := &errorAudioSession{err: errors.New("read failed")}
	var reported []error
	done := make(chan struct{})

	go pumpAudioChunks(audio, io.Discard, 256, func(err error) { reported = append(reported, err) }, done)
	<-done

	if len(reported) != 1 {
		t.Fatalf("expected audio capture error, got %v", reported)
	}
}

func TestPumpAudioChunksStopsQuietlyWhenRouterClosed(t *testing.T) {
	t.Parallel()

	audio := &fakeAudioSession{chunks: [][]byte{[]byte("abc"), []byte("def")}}
	router := newAudioRouter(0, nil)
	router.Close()
	var reported []error
	done := make(chan struct{})

	go pumpAudioChunks(audio, router, 256, func(err error) { reported = append(reported, err) }, done)
	<-done

	if len(reported) != 0 {
		t.Fatalf("closed router must not be reported, got %v", reported)
	}
}

func TestAudioRouterBuffersUntilAttached(t *testing.T) {
	t.Parallel()

	router := newAudioRouter(0, nil)
	_, _ = router.Write([]byte("ab"))
	_, _ = router.Write([]byte("cd"))

	session := newFakeRecognitionSession()
	router.Attach(0, session)
	_, _ = router.Write([]byte("ef"))

	if got := session.audio(); !bytes.Equal(got, []byte("abcdef")) {
		t.Fatalf("expected buffered audio in order, got %q", got)
	}
}

func TestAudioRouterDropsOldestBeyondLimit(t *testing.T) {
	t.Parallel()

	router := newAudioRouter(4, nil)
	_, _ = router.Write([]byte("ab"))
	_, _ = router.Write([]byte("cd"))
	_, _ = router.Write([]byte("ef"))

	session := newFakeRecognitionSession()
	router.Attach(0, session)

	if got := session.audio(); !bytes.Equal(got, []byte("cdef")) {
		t.Fatalf("expected oldest chunk dropped, got %q", got)
	}
	if dropped := router.Close(); dropped != 2 {
		t.Fatalf("expected 2 dropped bytes, got %d", dropped)
	}
}

func TestAudioRouterStaleAttachIsIgnored(t *testing.T) {
	t.Parallel()

	router := newAudioRouter(0, nil)
	generation := router.Detach()

	stale := newFakeRecognitionSession()
	router.Attach(generation-1, stale)
	_, _ = router.Write([]byte("xy"))

	if len(stale.audio()) != 0 {
		t.Fatalf("stale session must not receive audio")
	}
}

func TestAudioRouterReportsSendErrorOnce(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var reports []uint64
	router := newAudioRouter(0, func(generation uint64, _ error) {
		mu.Lock()
		reports = append(reports, generation)
		mu.Unlock()
	})

	session := newFakeRecognitionSession()
	session.sendErr = errors.New("socket closed")
	router.Attach(0, session)
	_, _ = router.Write([]byte("a"))
	_, _ = router.Write([]byte("b"))

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 || reports[0] != 0 {
		t.Fatalf("expected one report for generation 0, got %v", reports)
	}
}

type errorAudioSession struct {
	err error
}

func (s *errorAudioSession) Read(_ []byte) (int, error) { return 0, s.err }
func (s *errorAudioSession) Close() error               { return nil }
func (s *errorAudioSession) Stop() error                { return nil }
