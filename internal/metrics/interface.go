// Quality metrics comparing a noisy frame with its filtered version
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"dewaff/internal/core"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric value
	Calculate(original, processed *core.Image) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate better quality
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates an evaluator with the default metrics for images
// whose first channel spans [0, peak]
func NewEvaluator(peak float64) *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.Register("psnr", NewPSNR(peak))
	e.Register("ssim", NewSSIM(peak))
	e.Register("mse", NewMSE())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())

	return e
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names lists the registered metrics in lexical order
func (e *Evaluator) Names() []string {
	names := lo.Keys(e.metrics)
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed *core.Image) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(original, processed)
}

// CalculateAll calculates all registered metrics, skipping failures
func (e *Evaluator) CalculateAll(original, processed *core.Image) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}

	return results
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	return lo.MapValues(e.metrics, func(metric Metric, _ string) MetricInfo {
		low, high := metric.GetRange()
		return MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{low, high},
			HigherBetter: metric.IsHigherBetter(),
		}
	})
}

// QualityReport contains comprehensive quality assessment
type QualityReport struct {
	OverallScore float64            `json:"overall_score"`
	Metrics      map[string]float64 `json:"metrics"`
	Analysis     QualityAnalysis    `json:"analysis"`
	Timestamp    string             `json:"timestamp"`
}

// QualityAnalysis provides interpretation of metrics
type QualityAnalysis struct {
	QualityLevel string   `json:"quality_level"` // "excellent", "good", "fair", "poor"
	Issues       []string `json:"issues"`
	Suggestions  []string `json:"suggestions"`
}

// GenerateReport scores processed against original at time now
func (e *Evaluator) GenerateReport(original, processed *core.Image, now time.Time) QualityReport {
	metrics := e.CalculateAll(original, processed)

	return QualityReport{
		OverallScore: e.calculateOverallScore(metrics),
		Metrics:      metrics,
		Analysis:     e.analyzeQuality(metrics),
		Timestamp:    now.Format("2006-01-02 15:04:05"),
	}
}

// calculateOverallScore calculates a weighted overall quality score
func (e *Evaluator) calculateOverallScore(metrics map[string]float64) float64 {
	weights := map[string]float64{
		"psnr":           0.3,
		"ssim":           0.4,
		"contrast_ratio": 0.1,
		"sharpness":      0.2,
	}

	totalWeight := 0.0
	weightedSum := 0.0

	for name, weight := range weights {
		if value, exists := metrics[name]; exists {
			weightedSum += e.normalizeMetric(name, value) * weight
			totalWeight += weight
		}
	}

	if totalWeight == 0 {
		return 0
	}

	return (weightedSum / totalWeight) * 100
}

// normalizeMetric maps a metric value into [0, 1], 1 being best
func (e *Evaluator) normalizeMetric(name string, value float64) float64 {
	metric, exists := e.metrics[name]
	if !exists {
		return 0
	}

	min, max := metric.GetRange()
	if max == min {
		return 1.0
	}

	value = math.Min(math.Max(value, min), max)
	normalized := (value - min) / (max - min)

	if !metric.IsHigherBetter() {
		normalized = 1.0 - normalized
	}

	return normalized
}

// analyzeQuality flags the usual failure modes of edge-preserving smoothing
func (e *Evaluator) analyzeQuality(metrics map[string]float64) QualityAnalysis {
	analysis := QualityAnalysis{
		Issues:      make([]string, 0),
		Suggestions: make([]string, 0),
	}

	overallScore := e.calculateOverallScore(metrics)

	switch {
	case overallScore >= 90:
		analysis.QualityLevel = "excellent"
	case overallScore >= 75:
		analysis.QualityLevel = "good"
	case overallScore >= 60:
		analysis.QualityLevel = "fair"
	default:
		analysis.QualityLevel = "poor"
	}

	if ssim, exists := metrics["ssim"]; exists && ssim < 0.7 {
		analysis.Issues = append(analysis.Issues, "Low SSIM indicates lost structure")
		analysis.Suggestions = append(analysis.Suggestions, "Lower the range sigma or the window size")
	}

	if sharpness, exists := metrics["sharpness"]; exists && sharpness < 0.5 {
		analysis.Issues = append(analysis.Issues, "Edges were smoothed away")
		analysis.Suggestions = append(analysis.Suggestions, "Raise lambda to strengthen the guide")
	}

	if sharpness, exists := metrics["sharpness"]; exists && sharpness > 1.5 {
		analysis.Issues = append(analysis.Issues, "Output is sharper than the input, halos are likely")
		analysis.Suggestions = append(analysis.Suggestions, "Lower lambda")
	}

	return analysis
}
