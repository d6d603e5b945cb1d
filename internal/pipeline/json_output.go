package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// JSONOutput writes segment results as JSON lines to a writer
type JSONOutput struct {
	writer io.Writer
	logger *zap.Logger
}

// NewJSONOutput creates a new JSONOutput instance
func NewJSONOutput(writer io.Writer, logger *zap.Logger) *JSONOutput {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONOutput{
		writer: writer,
		logger: logger,
	}
}

// WriteResult writes one segment result as a JSON line
func (jo *JSONOutput) WriteResult(result SegmentResult) error {
	// Validate result before output
	if err := result.Validate(); err != nil {
		jo.logger.Error("invalid segment result", zap.Error(err))
		return fmt.Errorf("invalid segment result: %w", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		jo.logger.Error("failed to marshal segment result", zap.Error(err))
		return fmt.Errorf("failed to marshal segment result: %w", err)
	}

	if _, err := fmt.Fprintf(jo.writer, "%s\n", jsonBytes); err != nil {
		jo.logger.Error("failed to write JSON output", zap.Error(err))
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	jo.logger.Debug("output segment result",
		zap.Int("segment_number", result.SegmentNumber),
		zap.String("speaker", result.Speaker),
		zap.Float64("start", result.Start),
		zap.Float64("end", result.End))

	return nil
}
