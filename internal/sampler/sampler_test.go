package sampler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/models"
	"github.com/smart-lms/backend/internal/session"
)

type stubSource struct {
	openErr    error
	captureErr error
	opens      atomic.Int32
	closes     atomic.Int32
}

func (s *stubSource) Open(ctx context.Context) error {
	s.opens.Add(1)
	return s.openErr
}

func (s *stubSource) Capture(ctx context.Context) (*Frame, error) {
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return &Frame{Data: []byte{0x01}, Width: 640, Height: 480}, nil
}

func (s *stubSource) Close() error {
	s.closes.Add(1)
	return nil
}

type stubClassifier struct {
	loadErr error
	result  *Classification
	block   chan struct{} // when set, Classify waits until closed
	calls   atomic.Int32
}

func (c *stubClassifier) Load(ctx context.Context) error { return c.loadErr }

func (c *stubClassifier) Classify(ctx context.Context, frame *Frame) (*Classification, error) {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.result == nil {
		return &Classification{FaceDetected: true, Scores: map[string]float64{"happy": 0.9}, Confidence: 0.9}, nil
	}
	return c.result, nil
}

func newTestSampler(src *stubSource, cls *stubClassifier, interval time.Duration) *Sampler {
	return New(src, cls, interval, uuid.New(), "sess-1", "p-1", zap.NewNop())
}

func TestSamplerStartFailures(t *testing.T) {
	t.Run("classifier load failure prevents start", func(t *testing.T) {
		src := &stubSource{}
		cls := &stubClassifier{loadErr: errors.New("model missing")}
		s := newTestSampler(src, cls, time.Second)

		err := s.Start(context.Background(), func(models.EmotionSample) {})
		require.ErrorIs(t, err, session.ErrClassifierUnavailable)
		assert.False(t, s.Running())
		assert.Equal(t, int32(0), src.opens.Load(), "device untouched when the model fails to load")
	})

	t.Run("device open failure prevents start", func(t *testing.T) {
		src := &stubSource{openErr: session.ErrDeviceUnavailable}
		s := newTestSampler(src, &stubClassifier{}, time.Second)

		err := s.Start(context.Background(), func(models.EmotionSample) {})
		require.ErrorIs(t, err, session.ErrDeviceUnavailable)
		assert.False(t, s.Running())
	})
}

func TestSamplerProducesSamples(t *testing.T) {
	src := &stubSource{}
	cls := &stubClassifier{}
	s := newTestSampler(src, cls, 5*time.Millisecond)

	var mu sync.Mutex
	var samples []models.EmotionSample
	require.NoError(t, s.Start(context.Background(), func(sample models.EmotionSample) {
		mu.Lock()
		samples = append(samples, sample)
		mu.Unlock()
	}))
	defer s.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(samples) >= 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	first := samples[0]
	mu.Unlock()
	assert.Equal(t, "happy", first.DominantEmotion)
	assert.True(t, first.FaceDetected)
	assert.Equal(t, "p-1", first.ParticipantID)
}

func TestSamplerNoFaceIsValidSample(t *testing.T) {
	s := newTestSampler(&stubSource{}, &stubClassifier{}, time.Second)
	sample := s.buildSample(&Classification{FaceDetected: false})

	assert.False(t, sample.FaceDetected)
	assert.Equal(t, "neutral", sample.DominantEmotion)
	assert.Equal(t, map[string]float64{"neutral": 1}, sample.EmotionScores)
	assert.Zero(t, sample.Confidence)
}

func TestSamplerSingleFlight(t *testing.T) {
	src := &stubSource{}
	cls := &stubClassifier{block: make(chan struct{})}
	s := newTestSampler(src, cls, time.Second)
	s.running = true

	var done sync.WaitGroup
	done.Add(1)
	go func() {
		defer done.Done()
		s.tick(func(models.EmotionSample) {})
	}()
	require.Eventually(t, func() bool { return cls.calls.Load() == 1 }, time.Second, time.Millisecond)

	// Ticks arriving while a classification is in flight are dropped.
	s.tick(func(models.EmotionSample) {})
	s.tick(func(models.EmotionSample) {})
	assert.Equal(t, int32(1), cls.calls.Load())

	close(cls.block)
	done.Wait()

	s.tick(func(models.EmotionSample) {})
	assert.Equal(t, int32(2), cls.calls.Load(), "next tick classifies again")
}

func TestSamplerStopIdempotent(t *testing.T) {
	src := &stubSource{}
	s := newTestSampler(src, &stubClassifier{}, 5*time.Millisecond)
	require.NoError(t, s.Start(context.Background(), func(models.EmotionSample) {}))

	s.Stop()
	s.Stop()
	s.Stop()

	assert.False(t, s.Running())
	assert.Equal(t, int32(1), src.closes.Load())
}

func TestSamplerCaptureFailureSkipsSample(t *testing.T) {
	src := &stubSource{captureErr: errors.New("device busy")}
	s := newTestSampler(src, &stubClassifier{}, time.Second)
	s.running = true

	var got atomic.Int32
	s.tick(func(models.EmotionSample) { got.Add(1) })
	assert.Equal(t, int32(0), got.Load())
}
