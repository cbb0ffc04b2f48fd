// Image and video processing around the deceived filters
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"dewaff/internal/algorithms"
	"dewaff/internal/config"
	"dewaff/internal/core"
	"dewaff/internal/dewaff"
	dio "dewaff/internal/io"
	"dewaff/internal/metrics"
)

// labPeak is the upper bound of L*
const labPeak = 100

// frameBuffer bounds the frames in flight between video stages
const frameBuffer = 2

// Processor runs one configured filter over images and videos
type Processor struct {
	deceiver  *dewaff.Deceiver
	cfg       config.Config
	params    algorithms.Params
	loader    *dio.ImageLoader
	evaluator *metrics.Evaluator
	stats     *Stats
	logger    logrus.FieldLogger
	clock     func() time.Time
}

// NewProcessor validates cfg and sets the guide strength of deceiver to
// cfg.Lambda
func NewProcessor(deceiver *dewaff.Deceiver, cfg config.Config, logger logrus.FieldLogger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	deceiver.Lambda = cfg.Lambda

	return &Processor{
		deceiver:  deceiver,
		cfg:       cfg,
		params:    cfg.Params(),
		loader:    dio.NewImageLoader(logger),
		evaluator: metrics.NewEvaluator(labPeak),
		stats:     NewStats(),
		logger:    logger.WithField("filter", cfg.Filter),
		clock:     time.Now,
	}, nil
}

// SetClock replaces the time source used for timings and reports
func (p *Processor) SetClock(clock func() time.Time) {
	p.clock = clock
}

func (p *Processor) Stats() *Stats {
	return p.stats
}

func (p *Processor) timed(stage string, fn func() error) error {
	timer := core.NewTimer(p.clock)
	timer.Start()
	err := fn()
	p.stats.Record(stage, timer.Stop(), err)
	return err
}

// FilterLab applies the configured deceived filter to a Lab image
func (p *Processor) FilterLab(img *core.Image) (*core.Image, error) {
	var out *core.Image
	err := p.timed(StageFilter, func() error {
		var err error
		out, err = p.deceiver.Apply(p.cfg.Filter, img, p.params)
		return err
	})
	return out, err
}

// Benchmark filters img cfg.Benchmark times (at least once), logs the mean
// run time and returns the last result
func (p *Processor) Benchmark(ctx context.Context, img *core.Image) (*core.Image, error) {
	out, err := p.repeat(ctx, img)
	if err != nil {
		return nil, err
	}
	p.logBenchmark(img.String())
	return out, nil
}

func (p *Processor) repeat(ctx context.Context, img *core.Image) (*core.Image, error) {
	var out *core.Image
	for i := 0; i < max(p.cfg.Benchmark, 1); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if out, err = p.FilterLab(img); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Processor) logBenchmark(input string) {
	if p.cfg.Benchmark <= 0 {
		return
	}
	p.logger.WithFields(logrus.Fields{
		"loops":   p.cfg.Benchmark,
		"input":   input,
		"runs":    p.stats.Count(StageFilter),
		"average": p.stats.Average(StageFilter),
	}).Info("Benchmark finished")
}

// ProcessFrame filters one 8-bit frame through the Lab boundary, repeating
// the filter when benchmarking. The caller owns the returned Mat.
func (p *Processor) ProcessFrame(ctx context.Context, frame gocv.Mat) (gocv.Mat, error) {
	var lab *core.Image
	if err := p.timed(StageToLab, func() error {
		var err error
		lab, err = dio.FrameToLab(frame)
		return err
	}); err != nil {
		return gocv.NewMat(), err
	}

	out, err := p.repeat(ctx, lab)
	if err != nil {
		return gocv.NewMat(), err
	}

	return p.toFrame(out)
}

func (p *Processor) toFrame(img *core.Image) (gocv.Mat, error) {
	var mat gocv.Mat
	err := p.timed(StageToFrame, func() error {
		var err error
		mat, err = dio.LabToFrame(img)
		return err
	})
	return mat, err
}

// ProcessImage filters the image at input and writes it to output
func (p *Processor) ProcessImage(ctx context.Context, input, output string) error {
	var frame gocv.Mat
	if err := p.timed(StageDecode, func() error {
		var err error
		frame, err = p.loader.LoadImage(input)
		return err
	}); err != nil {
		return err
	}
	defer frame.Close()

	var lab *core.Image
	if err := p.timed(StageToLab, func() error {
		var err error
		lab, err = dio.FrameToLab(frame)
		return err
	}); err != nil {
		return err
	}

	if p.cfg.GuideOut != "" {
		if err := p.saveGuide(lab); err != nil {
			return err
		}
	}

	out, err := p.Benchmark(ctx, lab)
	if err != nil {
		return err
	}

	if p.cfg.Metrics {
		p.report(lab, out)
	}

	result, err := p.toFrame(out)
	if err != nil {
		return err
	}
	defer result.Close()

	if err := p.timed(StageEncode, func() error {
		return p.loader.SaveImage(result, output)
	}); err != nil {
		return err
	}

	p.stats.Log(p.logger)
	return nil
}

func (p *Processor) saveGuide(lab *core.Image) error {
	guide, err := p.deceiver.Guide(lab, p.params.WindowSize, p.params.SpatialSigma)
	if err != nil {
		return err
	}
	if err := dio.SaveTIFF(p.cfg.GuideOut, guide); err != nil {
		return err
	}
	p.logger.WithField("filepath", p.cfg.GuideOut).Info("Guide image saved")
	return nil
}

func (p *Processor) report(original, processed *core.Image) {
	var report metrics.QualityReport
	_ = p.timed(StageMetrics, func() error {
		report = p.evaluator.GenerateReport(original, processed, p.clock())
		return nil
	})

	fields := logrus.Fields{
		"overall_score": report.OverallScore,
		"quality_level": report.Analysis.QualityLevel,
	}
	for name, value := range report.Metrics {
		fields[name] = value
	}
	p.logger.WithFields(fields).Info("Quality report")

	for _, issue := range report.Analysis.Issues {
		p.logger.Warn(issue)
	}
}

// ProcessVideo filters every frame of input into output. Decoding,
// filtering and encoding run as three concurrent stages; frames keep
// their order.
func (p *Processor) ProcessVideo(ctx context.Context, input, output string) error {
	source, err := dio.OpenVideo(input, p.logger)
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := dio.CreateVideo(output, source.Info())
	if err != nil {
		return err
	}
	defer sink.Close()

	g, ctx := errgroup.WithContext(ctx)
	decoded := make(chan gocv.Mat, frameBuffer)
	filtered := make(chan gocv.Mat, frameBuffer)

	g.Go(func() error {
		defer close(decoded)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			frame := gocv.NewMat()
			var ok bool
			_ = p.timed(StageDecode, func() error {
				ok = source.Read(&frame)
				return nil
			})
			if !ok {
				frame.Close()
				return nil
			}

			select {
			case decoded <- frame:
			case <-ctx.Done():
				frame.Close()
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		defer close(filtered)

		index := 0
		for frame := range decoded {
			out, err := p.ProcessFrame(ctx, frame)
			frame.Close()
			if err != nil {
				return fmt.Errorf("frame %d: %w", index, err)
			}

			select {
			case filtered <- out:
			case <-ctx.Done():
				out.Close()
				return ctx.Err()
			}

			index++
			if index%25 == 0 {
				p.logger.WithField("frames", index).Debug("Video progress")
			}
		}
		return nil
	})

	g.Go(func() error {
		for frame := range filtered {
			err := p.timed(StageEncode, func() error {
				return sink.Write(frame)
			})
			frame.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	drain(decoded)
	drain(filtered)
	if err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"input":  input,
		"output": output,
		"frames": sink.Frames(),
	}).Info("Video processed")
	p.logBenchmark(input)
	p.stats.Log(p.logger)
	return nil
}

// drain closes the Mats left in a closed channel
func drain(ch <-chan gocv.Mat) {
	for frame := range ch {
		frame.Close()
	}
}
