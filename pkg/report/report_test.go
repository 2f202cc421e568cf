package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/output"
	"github.com/ericogr/greenhouse-node/pkg/sample"
)

type fakeTransport struct {
	resp     output.Response
	err      error
	payloads [][]byte
}

func (f *fakeTransport) Submit(_ context.Context, payload []byte) (output.Response, error) {
	f.payloads = append(f.payloads, payload)
	return f.resp, f.err
}

func (f *fakeTransport) Close() error { return nil }

type unassociated struct{}

func (unassociated) IsAssociated() bool { return false }

func (unassociated) Associate(context.Context, int, time.Duration) bool { return false }

func TestPayloadSchema(t *testing.T) {
	rec := sample.MeasurementRecord{Temperature: 98.6, Humidity: 70, SoilMoisture: 100, LightLevel: 600, CO2PPM: 700}
	b, err := Payload(rec)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	want := `{"temperature":98.6,"humidity":70,"soil_moisture":100,"light_level":600,"co2_ppm":700}`
	if string(b) != want {
		t.Fatalf("payload:\n got %s\nwant %s", b, want)
	}
}

func TestPayloadHasFiveRoundedNumbers(t *testing.T) {
	rec := sample.MeasurementRecord{Temperature: 77.777, Humidity: 61.049, SoilMoisture: 33.3333, LightLevel: 600, CO2PPM: 700.06}
	b, err := Payload(rec)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 5 {
		t.Fatalf("fields: got %d want 5 (%s)", len(m), b)
	}
	want := map[string]float64{"temperature": 77.8, "humidity": 61, "soil_moisture": 33.3, "light_level": 600, "co2_ppm": 700.1}
	for k, v := range want {
		got, ok := m[k].(float64)
		if !ok {
			t.Fatalf("%s missing or not numeric: %v", k, m[k])
		}
		if got != v {
			t.Fatalf("%s: got %v want %v", k, got, v)
		}
		if sample.Round1(got) != got {
			t.Fatalf("%s has more than one decimal: %v", k, got)
		}
	}
}

func TestReportSent(t *testing.T) {
	ft := &fakeTransport{resp: output.Response{StatusCode: 200, Body: []byte("ok")}}
	r := New(ft, nil, nil)
	if got := r.Report(context.Background(), sample.MeasurementRecord{}); got != OutcomeSent {
		t.Fatalf("outcome: %v", got)
	}
	if len(ft.payloads) != 1 {
		t.Fatalf("submits: %d", len(ft.payloads))
	}
}

func TestReportNon2xxCountsAsSent(t *testing.T) {
	ft := &fakeTransport{resp: output.Response{StatusCode: 500}}
	if got := New(ft, nil, nil).Report(context.Background(), sample.MeasurementRecord{}); got != OutcomeSent {
		t.Fatalf("outcome: %v", got)
	}
}

func TestReportTransmissionFailure(t *testing.T) {
	tests := []struct {
		name string
		resp output.Response
		err  error
	}{
		{"connection error", output.Response{StatusCode: output.StatusConnectionFailed}, errors.New("connection refused")},
		{"zero status", output.Response{StatusCode: 0}, nil},
		{"negative status", output.Response{StatusCode: -11}, nil},
	}
	for _, tt := range tests {
		ft := &fakeTransport{resp: tt.resp, err: tt.err}
		got := New(ft, nil, nil).Report(context.Background(), sample.MeasurementRecord{})
		if got != OutcomeTransmissionFailure {
			t.Fatalf("%s: outcome %v", tt.name, got)
		}
		if len(ft.payloads) != 1 {
			t.Fatalf("%s: submits %d; want exactly 1 (no retry)", tt.name, len(ft.payloads))
		}
	}
}

func TestReportSkippedWhenNotAssociated(t *testing.T) {
	ft := &fakeTransport{resp: output.Response{StatusCode: 200}}
	r := New(ft, unassociated{}, nil)
	if got := r.Report(context.Background(), sample.MeasurementRecord{}); got != OutcomeSkipped {
		t.Fatalf("outcome: %v", got)
	}
	if len(ft.payloads) != 0 {
		t.Fatalf("transport must not be called, got %d submits", len(ft.payloads))
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeSent:                "sent",
		OutcomeTransmissionFailure: "transmission_failure",
		OutcomeSkipped:             "skipped",
	} {
		if o.String() != want {
			t.Fatalf("%d: %q", int(o), o.String())
		}
	}
	if !strings.HasPrefix(Outcome(9).String(), "outcome(") {
		t.Fatalf("unknown outcome: %q", Outcome(9).String())
	}
}
