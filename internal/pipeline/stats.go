// Per-stage timing of image and video runs
package pipeline

import (
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Stage names recorded by the processor
const (
	StageDecode  = "decode"
	StageToLab   = "to_lab"
	StageFilter  = "filter"
	StageToFrame = "to_frame"
	StageEncode  = "encode"
	StageMetrics = "metrics"
)

// Operation is one timed stage execution
type Operation struct {
	Stage    string
	Success  bool
	Duration time.Duration
	Error    string
}

// Stats collects operations from concurrent stages
type Stats struct {
	mu         sync.Mutex
	operations []Operation
	durations  map[string][]time.Duration
}

func NewStats() *Stats {
	return &Stats{
		operations: make([]Operation, 0),
		durations:  make(map[string][]time.Duration),
	}
}

// Record stores one stage execution; failed executions do not count
// towards the averages
func (s *Stats) Record(stage string, duration time.Duration, err error) {
	op := Operation{Stage: stage, Success: err == nil, Duration: duration}
	if err != nil {
		op.Error = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.operations = append(s.operations, op)
	if err == nil {
		s.durations[stage] = append(s.durations[stage], duration)
	}
}

// Count reports how many successful executions stage had
func (s *Stats) Count(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.durations[stage])
}

// Average returns the mean successful duration of stage
func (s *Stats) Average(stage string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return averageDuration(s.durations[stage])
}

func (s *Stats) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"total_operations": len(s.operations),
	}

	successCount := lo.CountBy(s.operations, func(op Operation) bool { return op.Success })
	if len(s.operations) > 0 {
		stats["success_rate"] = float64(successCount) / float64(len(s.operations))
	}

	for stage, durations := range s.durations {
		stats["avg_"+stage+"_time"] = averageDuration(durations)
	}

	return stats
}

// Log writes the summary at info level
func (s *Stats) Log(logger logrus.FieldLogger) {
	logger.WithFields(logrus.Fields(s.GetStats())).Info("Processing summary")
}

func averageDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	return total / time.Duration(len(durations))
}
