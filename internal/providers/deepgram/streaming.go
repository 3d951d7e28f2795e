package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxkey/internal/domain"
	"voxkey/internal/logger"
	"voxkey/internal/ports"
)

// ProviderID is the registry key of the Deepgram recognizer.
const ProviderID = "deepgram"

var (
	errMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")
	errSendClosed    = errors.New("audio stream is already closed")
	errSessionClosed = errors.New("session closed")
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Provider implements ports.Recognizer for Deepgram live streaming.
type Provider struct {
	cfg    Config
	log    *logger.Logger
	dialer *websocket.Dialer
}

func NewProvider(cfg Config, log *logger.Logger) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if log == nil {
		log = logger.NewNop()
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	return &Provider{cfg: cfg, log: log, dialer: &dialer}
}

func (p *Provider) ID() string {
	return ProviderID
}

// Capabilities reports true incremental streaming with per-result confidence.
func (p *Provider) Capabilities() ports.RecognizerCapabilities {
	return ports.RecognizerCapabilities{StreamingSupported: true, ReportsConfidence: true}
}

func (p *Provider) Start(ctx context.Context, cfg ports.RecognitionConfig) (ports.RecognitionSession, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, domain.Fatal(ProviderID, errMissingAPIKey)
	}
	if cfg.Language == "" {
		cfg.Language = p.cfg.Language
	}

	wsURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, domain.Fatal(ProviderID, err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.dialer.DialContext(ctx, wsURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, classifyDialError(resp, err)
	}

	session := &streamingSession{
		conn:     conn,
		log:      p.log,
		events:   make(chan domain.RecognitionEvent, 64),
		audio:    make(chan []byte, 32),
		sendDone: make(chan struct{}),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()

	p.log.Debug("Deepgram stream opened", logger.String("model", p.cfg.Model))
	return session, nil
}

// classifyDialError treats rejected credentials as fatal; everything else may be retried.
func classifyDialError(resp *http.Response, err error) error {
	wrapped := fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			return domain.Fatal(ProviderID, fmt.Errorf("%w (status %d)", wrapped, resp.StatusCode))
		}
	}
	return domain.Transient(ProviderID, wrapped)
}

type streamingSession struct {
	conn *websocket.Conn
	log  *logger.Logger

	events chan domain.RecognitionEvent
	audio  chan []byte
	// sendDone ends the audio stream, closed tears the connection down and done
	// reports that both loops have exited.
	sendDone chan struct{}
	closed   chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu     sync.Mutex
	err       error
	lastFinal domain.RecognitionEvent
	stopping  bool

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func (s *streamingSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	select {
	case <-s.sendDone:
		return errSendClosed
	default:
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.sendDone:
		return errSendClosed
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return domain.Transient(ProviderID, err)
		}
		return domain.Transient(ProviderID, errSessionClosed)
	}
}

func (s *streamingSession) closeSend() {
	s.closeSendOnce.Do(func() { close(s.sendDone) })
}

func (s *streamingSession) teardown() {
	s.closeOnce.Do(func() {
		s.closeSend()
		close(s.closed)
		_ = s.conn.Close()
	})
}

func (s *streamingSession) Events() <-chan domain.RecognitionEvent {
	return s.events
}

// Stop flushes the stream with CloseStream and waits for Deepgram to finish. The
// returned event is the last final result of the stream.
func (s *streamingSession) Stop(ctx context.Context) (domain.RecognitionEvent, error) {
	s.errMu.Lock()
	s.stopping = true
	s.errMu.Unlock()
	s.closeSend()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.teardown()
		<-s.done
		return s.final(), ctx.Err()
	}
	return s.final(), s.waitErr()
}

func (s *streamingSession) Close() error {
	s.teardown()
	<-s.done
	return s.waitErr()
}

func (s *streamingSession) final() domain.RecognitionEvent {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	ev := s.lastFinal
	ev.IsFinal = true
	return ev
}

func (s *streamingSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *streamingSession) setErr(err error) {
	if err == nil || isNormalClose(err) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// isNormalClose reports whether err, possibly wrapped, is a clean websocket close.
func isNormalClose(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}

func (s *streamingSession) isTornDown() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *streamingSession) isStopping() bool {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.stopping
}

func (s *streamingSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.audio:
			if err := s.writeAudio(chunk); err != nil {
				return
			}
			continue
		case <-s.closed:
			return
		case <-s.sendDone:
		}
		break
	}

	// Flush what was queued before the stream was closed.
	for drained := false; !drained; {
		select {
		case chunk := <-s.audio:
			if err := s.writeAudio(chunk); err != nil {
				return
			}
		default:
			drained = true
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *streamingSession) writeAudio(chunk []byte) error {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		s.setErr(fmt.Errorf("failed to send audio: %w", err))
		return err
	}
	return nil
}

func (s *streamingSession) readLoop() {
	defer s.wg.Done()
	// Unblocks writeLoop once the connection is gone.
	defer s.teardown()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			// A local teardown closes the connection under the reader.
			if !s.isTornDown() {
				s.setErr(fmt.Errorf("failed to read provider event: %w", err))
			}
			if !s.isStopping() && s.waitErr() != nil {
				s.emit(domain.RecognitionEvent{Err: domain.Transient(ProviderID, s.waitErr()), Timestamp: time.Now()})
			}
			return
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			s.log.Debug("Skipping unparsable Deepgram message", logger.Error(err))
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			err := errors.New(message)
			s.setErr(err)
			s.emit(domain.RecognitionEvent{Err: domain.Transient(ProviderID, err), Timestamp: time.Now()})
			return
		}

		alt, ok := firstAlternative(response)
		if !ok || alt.Transcript == "" {
			continue
		}

		event := domain.RecognitionEvent{
			Text:               alt.Transcript,
			IsFinal:            response.IsFinal || response.SpeechFinal,
			IsSegmentFinalized: response.SpeechFinal,
			Confidence:         alt.Confidence,
			Timestamp:          time.Now(),
		}
		if event.IsFinal {
			s.errMu.Lock()
			s.lastFinal = event
			s.errMu.Unlock()
		}
		s.emit(event)
	}
}

// emit blocks until the consumer takes the event or the session is torn down.
func (s *streamingSession) emit(event domain.RecognitionEvent) {
	select {
	case s.events <- event:
	case <-s.closed:
	}
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []alternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func firstAlternative(response deepgramResponse) (alternative, bool) {
	if len(response.Channel.Alternatives) > 0 {
		alt := response.Channel.Alternatives[0]
		alt.Transcript = strings.TrimSpace(alt.Transcript)
		if alt.Transcript != "" {
			return alt, true
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		alt := response.Results.Channels[0].Alternatives[0]
		alt.Transcript = strings.TrimSpace(alt.Transcript)
		return alt, true
	}
	return alternative{}, false
}

func extractTranscript(response deepgramResponse) string {
	alt, _ := firstAlternative(response)
	return alt.Transcript
}

func buildListenURL(providerCfg Config, streamCfg ports.RecognitionConfig) (string, error) {
	base := providerCfg.APIBaseURL
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}
	base = strings.TrimSpace(base)

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}
	language := streamCfg.Language
	if language == "" {
		language = providerCfg.Language
	}
	query.Set("model", providerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", streamCfg.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", streamCfg.Channels))
	query.Set("interim_results", fmt.Sprintf("%t", streamCfg.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", providerCfg.SmartFormat))
	if language != "" {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
