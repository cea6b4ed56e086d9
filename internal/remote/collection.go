package remote

import "context"

// Record is one published entry. Payload is the canonical serialization
// of the record body.
type Record struct {
	ID      string
	Payload []byte
}

// Collection is the remote store a Reconciler publishes to.
//
// Upserts and deletes are staged; ApprovePendingChanges makes every staged
// change visible at once. ListRecords returns what is currently visible.
type Collection interface {
	ListRecords(ctx context.Context) ([]Record, error)
	UpsertRecord(ctx context.Context, rec Record) error
	DeleteRecord(ctx context.Context, id string) error
	ApprovePendingChanges(ctx context.Context) error
}
