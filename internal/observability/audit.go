package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventDatasetLoad      AuditEventType = "dataset.load"
	AuditEventAnalysisStart    AuditEventType = "analysis.start"
	AuditEventAnalysisComplete AuditEventType = "analysis.complete"
	AuditEventAnalysisError    AuditEventType = "analysis.error"
	AuditEventReportWrite      AuditEventType = "report.write"
	AuditEventGraphStore       AuditEventType = "graphdb.store"
	AuditEventGraphLoad        AuditEventType = "graphdb.load"
	AuditEventWorkflowStart    AuditEventType = "workflow.start"
	AuditEventWorkflowEnd      AuditEventType = "workflow.end"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	WorkflowID  string                 `json:"workflow_id,omitempty"`
	Dataset     string                 `json:"dataset,omitempty"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stderr",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout":
		writer = os.Stdout
	case "stderr", "":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogDatasetLoad logs a dataset load event.
func (l *AuditLogger) LogDatasetLoad(source string, entities, edges int) {
	l.Log(&AuditEvent{
		EventType: AuditEventDatasetLoad,
		Dataset:   source,
		Success:   true,
		Message:   fmt.Sprintf("Loaded dataset %s", source),
		Details: map[string]interface{}{
			"entities": entities,
			"edges":    edges,
		},
	})
}

// LogAnalysisStart logs the start of an analysis run.
func (l *AuditLogger) LogAnalysisStart(dataset, workflowID string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventAnalysisStart,
		Dataset:    dataset,
		WorkflowID: workflowID,
		Success:    true,
		Message:    fmt.Sprintf("Analysis of %s started", dataset),
	})
}

// LogAnalysisComplete logs a completed analysis run.
func (l *AuditLogger) LogAnalysisComplete(dataset, workflowID string, duration time.Duration, anomalies int) {
	l.Log(&AuditEvent{
		EventType:  AuditEventAnalysisComplete,
		Dataset:    dataset,
		WorkflowID: workflowID,
		Success:    true,
		Duration:   duration,
		Message:    fmt.Sprintf("Analysis of %s completed", dataset),
		Details: map[string]interface{}{
			"anomalies": anomalies,
		},
	})
}

// LogAnalysisError logs a failed analysis run.
func (l *AuditLogger) LogAnalysisError(dataset, workflowID string, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventAnalysisError,
		Dataset:     dataset,
		WorkflowID:  workflowID,
		Success:     false,
		Message:     fmt.Sprintf("Analysis of %s failed", dataset),
		ErrorDetail: err.Error(),
	})
}

// LogReportWrite logs a written report artifact.
func (l *AuditLogger) LogReportWrite(dataset, path string, bytes int) {
	l.Log(&AuditEvent{
		EventType: AuditEventReportWrite,
		Dataset:   dataset,
		Success:   true,
		Message:   fmt.Sprintf("Report written to %s", path),
		Details: map[string]interface{}{
			"bytes": bytes,
		},
	})
}

// LogGraphStore logs a graph persistence event.
func (l *AuditLogger) LogGraphStore(dataset string, duration time.Duration, err error) {
	ev := &AuditEvent{
		EventType: AuditEventGraphStore,
		Dataset:   dataset,
		Success:   err == nil,
		Duration:  duration,
		Message:   fmt.Sprintf("Graph %s stored", dataset),
	}
	if err != nil {
		ev.Message = fmt.Sprintf("Graph store of %s failed", dataset)
		ev.ErrorDetail = err.Error()
	}
	l.Log(ev)
}

// LogWorkflowStart logs a workflow start event.
func (l *AuditLogger) LogWorkflowStart(workflowID, dataset string) {
	l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Dataset:    dataset,
		Success:    true,
		Message:    "Workflow started",
	})
}

// LogWorkflowEnd logs a workflow end event.
func (l *AuditLogger) LogWorkflowEnd(workflowID string, duration time.Duration, err error) {
	ev := &AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    err == nil,
		Duration:   duration,
		Message:    "Workflow finished",
	}
	if err != nil {
		ev.ErrorDetail = err.Error()
	}
	l.Log(ev)
}
