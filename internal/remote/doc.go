// Package remote publishes recipes to a Remote Settings collection.
//
// The Reconciler diffs the desired set of published payloads against the
// records currently published and issues the minimal set of upserts and
// deletes, followed by a single approval that makes them visible to
// clients. Payloads are compared byte for byte, so both sides must be
// canonical serializations (see ir.MarshalCanonical).
//
// Collaborators implement Collection. KintoClient talks to a Remote
// Settings server; MemoryCollection keeps everything in memory and records
// every call for tests.
package remote
