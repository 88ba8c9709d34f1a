package assist

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/stores"
	"github.com/google/uuid"
)

// caller issues single remote requests and records a trace for each.
type caller struct {
	panelID string
	model   models.Model
	traces  stores.TraceStore
	logger  *log.Logger
	now     func() time.Time
}

func (c *caller) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *caller) newTrace(kind, modelID, promptText string) *stores.RequestTrace {
	return &stores.RequestTrace{
		RequestID:   uuid.NewString(),
		PanelID:     c.panelID,
		Kind:        kind,
		Model:       modelID,
		PromptBytes: len(promptText),
		StartedAt:   c.clock(),
	}
}

// do runs req and fills in the trace outcome. The returned error wraps
// ErrRequestFailed.
func (c *caller) do(ctx context.Context, trace *stores.RequestTrace, req models.Model_Request) (models.Model_Response, error) {
	resp, err := c.model.Model_Request(ctx, req)
	trace.DurationMS = c.clock().Sub(trace.StartedAt).Milliseconds()
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrRequestFailed, err)
		trace.Status = stores.TraceFailed
		trace.Error = err.Error()
		return models.Model_Response{}, err
	}
	trace.Status = stores.TraceOK
	return resp, nil
}

// record persists trace when a trace store is configured. Failures are logged.
func (c *caller) record(trace *stores.RequestTrace) {
	if c.traces == nil || trace == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.traces.SaveTrace(ctx, trace); err != nil {
		c.logger.Printf("failed to save %s trace: %v", trace.Kind, err)
	}
}

func defaultLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.LstdFlags)
}
