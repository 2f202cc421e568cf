// Package report turns a measurement record into the collector payload and
// submits it once.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ericogr/greenhouse-node/pkg/network"
	"github.com/ericogr/greenhouse-node/pkg/output"
	"github.com/ericogr/greenhouse-node/pkg/sample"
)

type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeTransmissionFailure
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeTransmissionFailure:
		return "transmission_failure"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Payload rounds every field to one decimal and encodes the record.
func Payload(rec sample.MeasurementRecord) ([]byte, error) {
	b, err := json.Marshal(rec.Rounded())
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return b, nil
}

type Reporter struct {
	transport output.Transport
	network   network.Associator
	logger    *slog.Logger
}

func New(transport output.Transport, assoc network.Associator, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{transport: transport, network: assoc, logger: logger}
}

// Report submits rec exactly once. Failures are logged and never retried;
// the next cycle supersedes this one.
func (r *Reporter) Report(ctx context.Context, rec sample.MeasurementRecord) Outcome {
	if r.network != nil && !r.network.IsAssociated() {
		r.logger.Warn("network not associated, report skipped")
		return OutcomeSkipped
	}
	payload, err := Payload(rec)
	if err != nil {
		r.logger.Error("encode payload failed", "error", err)
		return OutcomeTransmissionFailure
	}
	r.logger.Debug("sending payload", "payload", string(payload))

	resp, err := r.transport.Submit(ctx, payload)
	if err != nil || !resp.Completed() {
		r.logger.Error("transmission failed", "status", resp.StatusCode, "error", err)
		return OutcomeTransmissionFailure
	}
	if resp.StatusCode >= 300 {
		r.logger.Warn("collector answered with non-success status",
			"status", resp.StatusCode, "response", string(resp.Body))
	} else {
		r.logger.Info("payload sent", "status", resp.StatusCode, "response", string(resp.Body))
	}
	return OutcomeSent
}
