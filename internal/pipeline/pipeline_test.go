package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"dewaff/internal/algorithms"
	"dewaff/internal/config"
	"dewaff/internal/core"
	"dewaff/internal/dewaff"
)

// fakeClock advances by step on every reading
func fakeClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func newProcessor(t *testing.T, cfg config.Config) (*Processor, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	filters := algorithms.NewFilters(2, logger)
	t.Cleanup(filters.Close)

	p, err := NewProcessor(dewaff.New(filters, logger), cfg, logger)
	require.NoError(t, err)
	p.SetClock(fakeClock(10 * time.Millisecond))
	return p, hook
}

func smallConfig(filter string) config.Config {
	cfg := config.Default()
	cfg.Filter = filter
	cfg.WindowSize = 5
	return cfg
}

func labImage() *core.Image {
	img := core.NewImage(12, 10, 3)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			l := 30.0
			if x >= 6 {
				l = 70
			}
			img.Set(x, y, 0, l+float64((x*7+y*3)%5))
			img.Set(x, y, 1, 5)
			img.Set(x, y, 2, -5)
		}
	}
	return img
}

func TestStats(t *testing.T) {
	s := NewStats()
	s.Record(StageFilter, 10*time.Millisecond, nil)
	s.Record(StageFilter, 30*time.Millisecond, nil)
	s.Record(StageFilter, time.Second, errors.New("boom"))
	s.Record(StageEncode, 5*time.Millisecond, nil)

	assert.Equal(t, 2, s.Count(StageFilter))
	assert.Equal(t, 20*time.Millisecond, s.Average(StageFilter))
	assert.Equal(t, time.Duration(0), s.Average(StageDecode))

	stats := s.GetStats()
	assert.Equal(t, 4, stats["total_operations"])
	assert.Equal(t, 0.75, stats["success_rate"])
	assert.Equal(t, 5*time.Millisecond, stats["avg_encode_time"])
}

func TestNewProcessorRejectsBadConfig(t *testing.T) {
	filters := algorithms.NewFilters(1, nil)
	defer filters.Close()

	cfg := config.Default()
	cfg.WindowSize = 4
	_, err := NewProcessor(dewaff.New(filters, nil), cfg, logrus.New())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestBenchmarkRepeatsAndReports(t *testing.T) {
	cfg := smallConfig(algorithms.NameBilateral)
	cfg.Benchmark = 3
	p, hook := newProcessor(t, cfg)

	img := labImage()
	out, err := p.Benchmark(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, out.SameShape(img))

	assert.Equal(t, 3, p.Stats().Count(StageFilter))
	assert.Equal(t, 10*time.Millisecond, p.Stats().Average(StageFilter))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Benchmark finished", entry.Message)
	assert.Equal(t, 3, entry.Data["loops"])
	assert.Equal(t, algorithms.NameBilateral, entry.Data["filter"])
}

func TestBenchmarkHonoursCancellation(t *testing.T) {
	p, _ := newProcessor(t, smallConfig(algorithms.NameGuided))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Benchmark(ctx, labImage())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.Stats().Count(StageFilter))
}

func TestFilterLabUsesConfiguredLambda(t *testing.T) {
	cfg := smallConfig(algorithms.NameBilateral)
	cfg.Lambda = 0
	p, _ := newProcessor(t, cfg)

	img := labImage()
	out, err := p.FilterLab(img)
	require.NoError(t, err)

	filters := algorithms.NewFilters(1, nil)
	defer filters.Close()
	params := cfg.Params()
	plain, err := filters.BilateralFilter(nil, img, params.WindowSize, params.SpatialSigma, params.RangeSigma)
	require.NoError(t, err)
	assert.Equal(t, plain.Pix, out.Pix)
}

func TestProcessImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "noisy.png")

	frame := gocv.NewMatWithSize(20, 24, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for y := 0; y < 20; y++ {
		for x := 0; x < 24; x++ {
			v := uint8(60 + (x*13+y*7)%40)
			if x >= 12 {
				v += 120
			}
			frame.SetUCharAt3(y, x, 0, v)
			frame.SetUCharAt3(y, x, 1, v)
			frame.SetUCharAt3(y, x, 2, v)
		}
	}
	require.True(t, gocv.IMWrite(input, frame))

	cfg := smallConfig(algorithms.NameGuided)
	cfg.GuideOut = filepath.Join(dir, "guide.tif")
	cfg.Metrics = true
	cfg.Benchmark = 2
	p, hook := newProcessor(t, cfg)

	output := cfg.OutputName(input, false)
	require.NoError(t, p.ProcessImage(context.Background(), input, output))

	result := gocv.IMRead(output, gocv.IMReadUnchanged)
	defer result.Close()
	require.False(t, result.Empty())
	assert.Equal(t, 24, result.Cols())
	assert.Equal(t, 20, result.Rows())
	assert.Equal(t, 3, result.Channels())

	_, err := os.Stat(cfg.GuideOut)
	assert.NoError(t, err)

	assert.Equal(t, 2, p.Stats().Count(StageFilter))
	assert.Equal(t, 1, p.Stats().Count(StageEncode))
	assert.Equal(t, 1, p.Stats().Count(StageMetrics))

	messages := make([]string, 0, len(hook.AllEntries()))
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Quality report")
	assert.Contains(t, messages, "Guide image saved")
	assert.Contains(t, messages, "Processing summary")
}

func TestProcessMissingInputs(t *testing.T) {
	p, _ := newProcessor(t, smallConfig(algorithms.NameGuided))
	dir := t.TempDir()

	err := p.ProcessImage(context.Background(), filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"))
	assert.Error(t, err)

	err = p.ProcessImage(context.Background(), filepath.Join(dir, "clip.avi"), filepath.Join(dir, "out.png"))
	assert.Error(t, err)

	err = p.ProcessVideo(context.Background(), filepath.Join(dir, "missing.avi"), filepath.Join(dir, "out.avi"))
	assert.Error(t, err)
}
