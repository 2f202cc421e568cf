package console

import (
	"context"
	"fmt"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/output"
)

// ConsoleOutput prints payloads instead of sending them. Useful on a bench
// without a collector.
type ConsoleOutput struct {
	now func() time.Time
}

func NewConsole() output.Transport { return &ConsoleOutput{now: time.Now} }

func (c *ConsoleOutput) Submit(_ context.Context, payload []byte) (output.Response, error) {
	fmt.Printf("%s payload=%s\n", c.now().Format(time.RFC3339), payload)
	return output.Response{StatusCode: output.StatusDelivered}, nil
}

func (c *ConsoleOutput) Close() error { return nil }
