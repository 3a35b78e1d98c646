package store

import (
	"context"
	"time"
)

// RemoteLogger mirrors operator-relevant events to a remote log table.
// Writes are best-effort and must never block or fail the caller.
type RemoteLogger interface {
	Info(message string, meta map[string]interface{})
	Warning(message string, meta map[string]interface{})
	Error(message string, meta map[string]interface{})
}

// RemoteLog writes to the bot_logs table, one detached goroutine per
// entry. It only reads its own fields, never shared loop state.
type RemoteLog struct {
	client *Client
}

// NewRemoteLog creates a remote logger over the shared store client
func NewRemoteLog(client *Client) *RemoteLog {
	return &RemoteLog{client: client}
}

type logRow struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta"`
}

func (r *RemoteLog) log(level, message string, meta map[string]interface{}) {
	if !r.client.Available() {
		return
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}

	row := logRow{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Meta:      meta,
	}

	// Fire and forget: detached context so a slow insert never holds up
	// or outlives interest in the trading loop
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		resp, err := r.client.http.R().
			SetContext(ctx).
			SetHeader("Prefer", "return=minimal").
			SetBody(row).
			Post("/bot_logs")
		if err != nil {
			r.client.logger.Debug().Err(err).Msg("Remote log write failed")
			return
		}
		if resp.IsError() {
			r.client.logger.Debug().Int("status", resp.StatusCode()).Msg("Remote log write rejected")
		}
	}()
}

// Info mirrors an informational event
func (r *RemoteLog) Info(message string, meta map[string]interface{}) {
	r.log("INFO", message, meta)
}

// Warning mirrors a warning event
func (r *RemoteLog) Warning(message string, meta map[string]interface{}) {
	r.log("WARNING", message, meta)
}

// Error mirrors an error event
func (r *RemoteLog) Error(message string, meta map[string]interface{}) {
	r.log("ERROR", message, meta)
}
