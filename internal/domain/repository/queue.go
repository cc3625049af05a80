package repository

import "context"

// ReplicateTask asks the worker to re-upload a file-tier entry to object
// storage. Published when the synchronous best-effort upload fails.
type ReplicateTask struct {
	Key        string `json:"key"`
	RetryCount int    `json:"retry_count"`
}

// MessageQueue defines the interface for the upload-retry queue.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishReplicateTask enqueues a replication task.
	// Used by the API service when an object-storage write fails.
	PublishReplicateTask(ctx context.Context, task ReplicateTask) error

	// ConsumeReplicateTasks starts consuming replication tasks.
	// The handler is called for each received task; a handler error requeues
	// the task until its retry budget is exhausted.
	ConsumeReplicateTasks(ctx context.Context, handler func(task ReplicateTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
