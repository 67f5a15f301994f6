// Package events defines the notification payloads emitted at query
// pipeline checkpoints.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every query lifecycle event.
const Topic = "askdb.query.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	QueryProgressEvent  EventType = "query.progress"
	QueryCompletedEvent EventType = "query.completed"
	QueryErrorEvent     EventType = "query.error"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id"`
}

// QueryProgress is emitted at every pipeline checkpoint. A regeneration
// resets the percentage for the new attempt; that reset is a deliberate,
// observable event.
type QueryProgress struct {
	BaseEvent

	CurrentStep        string  `json:"current_step"`
	ProgressPercentage int     `json:"progress_percentage"`
	GeneratedSQL       string  `json:"generated_sql,omitempty"`
	Confidence         float64 `json:"sql_confidence,omitempty"`
}

func (q QueryProgress) GetType() EventType {
	return QueryProgressEvent
}

// QueryCompleted is emitted once when a run reaches terminal success.
type QueryCompleted struct {
	BaseEvent

	FinalSQL        string   `json:"final_sql"`
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	RowCount        int      `json:"row_count"`
	ExecutionTimeMS int64    `json:"execution_time_ms"`
	TokensUsed      int      `json:"tokens_used"`
}

func (q QueryCompleted) GetType() EventType {
	return QueryCompletedEvent
}

// QueryError is emitted once when a run reaches terminal failure or is
// cancelled.
type QueryError struct {
	BaseEvent

	ErrorMessage string   `json:"error_message"`
	ErrorCode    string   `json:"error_code"`
	FailedStep   string   `json:"failed_step"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

func (q QueryError) GetType() EventType {
	return QueryErrorEvent
}

func NewBaseEvent(eventType EventType, taskID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
	}
}
