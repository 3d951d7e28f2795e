package usecase

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"voxkey/internal/ports"
)

const defaultPendingAudioLimit = 1 << 20

var errRouterClosed = errors.New("audio router closed")

// audioRouter forwards captured audio to whichever recognition session is attached.
// While no session is attached (during a provider switch) chunks are buffered up to
// limit bytes, dropping the oldest first. The lock is never held across SendAudio.
type audioRouter struct {
	mu           sync.Mutex
	target       ports.RecognitionSession
	generation   uint64
	pending      [][]byte
	pendingBytes int
	limit        int
	dropped      int
	closed       bool
	onSendError  func(generation uint64, err error)
}

func newAudioRouter(limit int, onSendError func(generation uint64, err error)) *audioRouter {
	if limit <= 0 {
		limit = defaultPendingAudioLimit
	}
	return &audioRouter{limit: limit, onSendError: onSendError}
}

// Write implements io.Writer for the capture pump.
func (r *audioRouter) Write(chunk []byte) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, errRouterClosed
	}
	target := r.target
	generation := r.generation
	if target == nil {
		r.bufferLocked(chunk)
		r.mu.Unlock()
		return len(chunk), nil
	}
	r.mu.Unlock()

	if err := target.SendAudio(chunk); err != nil {
		r.mu.Lock()
		if r.generation == generation && r.target == target {
			r.target = nil
			r.mu.Unlock()
			if r.onSendError != nil {
				r.onSendError(generation, err)
			}
			return len(chunk), nil
		}
		r.mu.Unlock()
	}
	return len(chunk), nil
}

// Attach flushes buffered audio into session and then routes live audio to it.
// It gives up silently if the router was detached or re-attached meanwhile.
func (r *audioRouter) Attach(generation uint64, session ports.RecognitionSession) {
	for {
		r.mu.Lock()
		if r.closed || r.generation != generation {
			r.mu.Unlock()
			return
		}
		if len(r.pending) == 0 {
			r.target = session
			r.mu.Unlock()
			return
		}
		batch := r.pending
		r.pending = nil
		r.pendingBytes = 0
		r.mu.Unlock()

		for _, chunk := range batch {
			if err := session.SendAudio(chunk); err != nil {
				if r.onSendError != nil {
					r.onSendError(generation, err)
				}
				return
			}
		}
	}
}

// Detach stops routing to the current session and returns the new generation that
// a replacement session must be attached with.
func (r *audioRouter) Detach() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = nil
	r.generation++
	return r.generation
}

// Close drops buffered audio and makes further writes fail.
func (r *audioRouter) Close() (dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.target = nil
	r.pending = nil
	r.pendingBytes = 0
	return r.dropped
}

func (r *audioRouter) bufferLocked(chunk []byte) {
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	r.pending = append(r.pending, cp)
	r.pendingBytes += len(cp)
	for r.pendingBytes > r.limit && len(r.pending) > 0 {
		r.pendingBytes -= len(r.pending[0])
		r.dropped += len(r.pending[0])
		r.pending = r.pending[1:]
	}
}

// pumpAudioChunks copies captured audio into sink until capture ends.
func pumpAudioChunks(
	audio ports.AudioSession,
	sink io.Writer,
	chunkSize int,
	onError func(error),
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if _, sendErr := sink.Write(buf[:n]); sendErr != nil {
				if !errors.Is(sendErr, errRouterClosed) {
					onError(fmt.Errorf("failed to stream audio: %w", sendErr))
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				onError(fmt.Errorf("audio capture error: %w", err))
			}
			return
		}
	}
}
