// Package sampler runs the periodic capture-and-classify loop that produces
// emotion samples for the telemetry channel. Emotion tracking is an
// enhancement: every failure here is reported once and never disturbs the
// call session.
package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/models"
	"github.com/smart-lms/backend/internal/session"
)

// Frame is one captured image handed to the classifier. The byte layout is
// whatever the capture source produces; the sampler never inspects it.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// FrameSource owns the capture device while tracking is active.
type FrameSource interface {
	// Open acquires the device. ErrDeviceUnavailable / ErrPermissionDenied
	// per the session error taxonomy.
	Open(ctx context.Context) error
	// Capture grabs one frame.
	Capture(ctx context.Context) (*Frame, error)
	// Close releases the device. Must be safe to call repeatedly.
	Close() error
}

// Classification is the raw classifier output for one frame.
type Classification struct {
	FaceDetected bool
	Scores       map[string]float64
	Confidence   float64
}

// Classifier turns a frame into emotion scores.
type Classifier interface {
	// Load prepares the model. ErrClassifierUnavailable on failure.
	Load(ctx context.Context) error
	Classify(ctx context.Context, frame *Frame) (*Classification, error)
}

// OnSample receives each produced sample. Called from the sampler's tick
// goroutine; implementations should hand off quickly.
type OnSample func(models.EmotionSample)

// Sampler produces one EmotionSample per interval for one participant in
// one meeting.
type Sampler struct {
	source     FrameSource
	classifier Classifier
	interval   time.Duration
	log        *zap.Logger

	meetingID     uuid.UUID
	sessionID     string
	participantID string

	mu       sync.Mutex
	running  bool
	inFlight bool // single-flight: a tick never overlaps a running classify
	stop     chan struct{}
}

// New creates a sampler. Interval must be positive; zero falls back to 5s.
func New(source FrameSource, classifier Classifier, interval time.Duration, meetingID uuid.UUID, sessionID, participantID string, log *zap.Logger) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sampler{
		source:        source,
		classifier:    classifier,
		interval:      interval,
		log:           log,
		meetingID:     meetingID,
		sessionID:     sessionID,
		participantID: participantID,
	}
}

// Start begins the capture loop. Model-load or device failure is returned
// once and tracking does not start. Starting an already running sampler is
// a no-op.
func (s *Sampler) Start(ctx context.Context, onSample OnSample) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.classifier.Load(ctx); err != nil {
		return fmt.Errorf("%w: %v", session.ErrClassifierUnavailable, err)
	}
	if err := s.source.Open(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go s.loop(stop, onSample)
	s.log.Info("emotion tracking started",
		zap.String("participant_id", s.participantID),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the loop and releases the capture device. Safe to call from
// any state and any number of times.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	_ = s.source.Close()
	s.log.Info("emotion tracking stopped", zap.String("participant_id", s.participantID))
}

// Running reports whether the loop is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) loop(stop chan struct{}, onSample OnSample) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(onSample)
		}
	}
}

func (s *Sampler) tick(onSample OnSample) {
	s.mu.Lock()
	if s.inFlight || !s.running {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	frame, err := s.source.Capture(ctx)
	if err != nil {
		s.log.Debug("frame capture failed", zap.Error(err))
		return
	}
	result, err := s.classifier.Classify(ctx, frame)
	if err != nil {
		s.log.Debug("classification failed", zap.Error(err))
		return
	}
	onSample(s.buildSample(result))
}

// buildSample shapes the classifier output into a sample. A frame with no
// face is still a valid, reportable sample: scores collapse to neutral and
// faceDetected is false.
func (s *Sampler) buildSample(result *Classification) models.EmotionSample {
	sample := models.EmotionSample{
		MeetingID:     s.meetingID,
		SessionID:     s.sessionID,
		ParticipantID: s.participantID,
		CapturedAt:    time.Now().UTC(),
		FaceDetected:  result.FaceDetected,
		Confidence:    result.Confidence,
	}
	if !result.FaceDetected || len(result.Scores) == 0 {
		sample.EmotionScores = map[string]float64{"neutral": 1}
		sample.DominantEmotion = "neutral"
		sample.Confidence = 0
		return sample
	}
	sample.EmotionScores = result.Scores
	sample.DominantEmotion = models.DominantEmotion(result.Scores)
	return sample
}
