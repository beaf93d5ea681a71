package eventbroker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operations carried by change events
const (
	OperationCreated = "created"
	OperationUpdated = "updated"
	OperationDeleted = "deleted"
)

// Event describes one committed change to an entity table
type Event struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Type   string `json:"type"` // Pattern: schema.entity.operation

	Schema    string  `json:"schema"`
	Entity    string  `json:"entity"`
	Operation string  `json:"operation"`
	IDs       []int64 `json:"ids"`

	Payload    json.RawMessage        `json:"payload,omitempty"`
	InstanceID string                 `json:"instance_id,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates a change event for ids of schema.entity
func NewEvent(source, schema, entity, operation string, ids ...int64) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Source:    source,
		Type:      EventType(schema, entity, operation),
		Schema:    schema,
		Entity:    entity,
		Operation: operation,
		IDs:       append([]int64(nil), ids...),
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// EventType generates a type string from schema, entity, and operation
// Pattern: schema.entity.operation (e.g., "dbo.Customer.created")
func EventType(schema, entity, operation string) string {
	return fmt.Sprintf("%s.%s.%s", schema, entity, operation)
}

// SetPayload sets the event payload from any value by marshaling to JSON
func (e *Event) SetPayload(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	e.Payload = data
	return nil
}

// GetPayload unmarshals the payload into the provided value
func (e *Event) GetPayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("payload is empty")
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// Clone creates a deep copy of the event
func (e *Event) Clone() *Event {
	clone := *e
	clone.IDs = append([]int64(nil), e.IDs...)
	clone.Payload = append(json.RawMessage(nil), e.Payload...)
	if e.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Validate performs basic validation on the event
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event ID is required")
	}
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if e.Operation == "" {
		return fmt.Errorf("event operation is required")
	}
	return nil
}
