package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/veridict/veridict/internal/model"
)

// Sink receives progress events during a job and the result graph at the
// end. Progress is write-only: implementations must never feed state back
// into the pipeline.
type Sink interface {
	Progress(ev model.ProgressEvent)
	Result(graph *model.ResultGraph) error
}

// NopSink discards everything
type NopSink struct{}

func (NopSink) Progress(model.ProgressEvent)    {}
func (NopSink) Result(*model.ResultGraph) error { return nil }

// JSONSink logs progress and writes the result graph as indented JSON
type JSONSink struct {
	out    io.Writer
	logger *zap.Logger
}

// NewJSONSink creates a sink writing the result graph to out
func NewJSONSink(out io.Writer, logger *zap.Logger) *JSONSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONSink{out: out, logger: logger}
}

func (s *JSONSink) Progress(ev model.ProgressEvent) {
	fields := []zap.Field{
		zap.String("stage", string(ev.Stage)),
	}
	if ev.Iteration > 0 {
		fields = append(fields, zap.Int("iteration", ev.Iteration))
	}
	if ev.ContextID != "" {
		fields = append(fields, zap.String("context_id", ev.ContextID))
	}
	s.logger.Info(ev.Message, fields...)
}

func (s *JSONSink) Result(graph *model.ResultGraph) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(graph); err != nil {
		return fmt.Errorf("encode result graph: %w", err)
	}
	return nil
}
