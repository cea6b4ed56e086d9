package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/recipesync/internal/ir"
)

// UpsertAction inserts or replaces an action keyed by id.
// An existing signature row is left alone: the signing coordinator detects
// the content change through the payload digest.
func (s *Store) UpsertAction(ctx context.Context, a ir.Action) error {
	schemaJSON, err := marshalObject(a.ArgumentsSchema)
	if err != nil {
		return fmt.Errorf("upsert action %s: %w", a.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO actions (id, name, implementation, arguments_schema)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			implementation = excluded.implementation,
			arguments_schema = excluded.arguments_schema
	`, a.ID, a.Name, a.Implementation, schemaJSON)
	if err != nil {
		return fmt.Errorf("upsert action %s: %w", a.ID, err)
	}
	return nil
}

// UpsertRecipe inserts or updates a recipe keyed by id and returns the
// stored revision.
//
// Revision numbering is owned by the store: a new recipe starts at
// max(r.Revision, 1); an existing recipe whose signed fields changed gets
// max(old+1, r.Revision); otherwise the revision is kept. The enabled
// flag is always taken from r and never bumps the revision.
func (s *Store) UpsertRecipe(ctx context.Context, r ir.Recipe) (revision int64, changed bool, err error) {
	argsJSON, err := marshalObject(r.Arguments)
	if err != nil {
		return 0, false, fmt.Errorf("upsert recipe %s: %w", r.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("upsert recipe %s: begin tx: %w", r.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	var (
		oldName, oldAction, oldFilter, oldArgs string
		oldRevision                            int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT name, action_name, filter_expression, arguments, revision
		FROM recipes WHERE id = ?
	`, r.ID).Scan(&oldName, &oldAction, &oldFilter, &oldArgs, &oldRevision)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		revision = max(r.Revision, 1)
		changed = true
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipes (id, name, action_name, filter_expression, arguments, revision, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.Name, r.Action, r.FilterExpression, argsJSON, revision, r.Enabled)
		if err != nil {
			return 0, false, fmt.Errorf("upsert recipe %s: insert: %w", r.ID, err)
		}

	case err != nil:
		return 0, false, fmt.Errorf("upsert recipe %s: select: %w", r.ID, err)

	default:
		changed = oldName != r.Name || oldAction != r.Action ||
			oldFilter != r.FilterExpression || oldArgs != argsJSON
		revision = oldRevision
		if changed {
			revision = max(oldRevision+1, r.Revision)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE recipes
			SET name = ?, action_name = ?, filter_expression = ?, arguments = ?, revision = ?, enabled = ?
			WHERE id = ?
		`, r.Name, r.Action, r.FilterExpression, argsJSON, revision, r.Enabled, r.ID)
		if err != nil {
			return 0, false, fmt.Errorf("upsert recipe %s: update: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("upsert recipe %s: commit: %w", r.ID, err)
	}
	return revision, changed, nil
}

// SetRecipeEnabled toggles a recipe's enabled flag.
// Returns sql.ErrNoRows if the recipe does not exist.
func (s *Store) SetRecipeEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE recipes SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("set enabled %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set enabled %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set enabled %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SaveSignature records sig for the entity, replacing any previous one.
func (s *Store) SaveSignature(ctx context.Context, kind ir.Kind, id string, sig ir.Signature) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signatures (entity_kind, entity_id, signature, signed_at, public_key_ref, payload_digest)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_kind, entity_id) DO UPDATE SET
			signature = excluded.signature,
			signed_at = excluded.signed_at,
			public_key_ref = excluded.public_key_ref,
			payload_digest = excluded.payload_digest
	`, string(kind), id, sig.Bytes, formatTimestamp(sig.Timestamp), sig.PublicKeyRef, sig.PayloadDigest)
	if err != nil {
		return fmt.Errorf("save signature %s/%s: %w", kind, id, err)
	}
	return nil
}

// ClearSignature removes the entity's signature. Clearing an absent
// signature is a no-op.
func (s *Store) ClearSignature(ctx context.Context, kind ir.Kind, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM signatures WHERE entity_kind = ? AND entity_id = ?
	`, string(kind), id)
	if err != nil {
		return fmt.Errorf("clear signature %s/%s: %w", kind, id, err)
	}
	return nil
}
