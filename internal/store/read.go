package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/recipesync/internal/ir"
)

const recipeColumns = `
	r.id, r.name, r.action_name, r.filter_expression, r.arguments, r.revision, r.enabled,
	s.signature, s.signed_at, s.public_key_ref, s.payload_digest`

const recipeFrom = `
	FROM recipes r
	LEFT JOIN signatures s ON s.entity_kind = 'recipe' AND s.entity_id = r.id`

const actionColumns = `
	a.id, a.name, a.implementation, a.arguments_schema,
	s.signature, s.signed_at, s.public_key_ref, s.payload_digest`

const actionFrom = `
	FROM actions a
	LEFT JOIN signatures s ON s.entity_kind = 'action' AND s.entity_id = a.id`

// ListRecipes returns every recipe with its signature, ordered by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListRecipes(ctx context.Context) ([]*ir.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recipeColumns+recipeFrom+`
		ORDER BY r.id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	recipes := []*ir.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return recipes, nil
}

// ReadRecipe retrieves a single recipe by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRecipe(ctx context.Context, id string) (*ir.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recipeColumns+recipeFrom+`
		WHERE r.id = ?`, id)
	return scanRecipe(row)
}

// ListActions returns every action with its signature, ordered by id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListActions(ctx context.Context) ([]*ir.Action, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+actionColumns+actionFrom+`
		ORDER BY a.id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := []*ir.Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

// ReadAction retrieves a single action by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadAction(ctx context.Context, id string) (*ir.Action, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+actionFrom+`
		WHERE a.id = ?`, id)
	return scanAction(row)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

type signatureColumns struct {
	bytes  []byte
	at     sql.NullString
	keyRef sql.NullString
	digest sql.NullString
}

func (c signatureColumns) signature() (*ir.Signature, error) {
	if !c.at.Valid {
		return nil, nil
	}
	ts, err := parseTimestamp(c.at.String)
	if err != nil {
		return nil, err
	}
	return &ir.Signature{
		Bytes:         c.bytes,
		Timestamp:     ts,
		PublicKeyRef:  c.keyRef.String,
		PayloadDigest: c.digest.String,
	}, nil
}

func scanRecipe(row rowScanner) (*ir.Recipe, error) {
	var (
		r        ir.Recipe
		argsJSON string
		sc       signatureColumns
	)
	if err := row.Scan(
		&r.ID, &r.Name, &r.Action, &r.FilterExpression, &argsJSON, &r.Revision, &r.Enabled,
		&sc.bytes, &sc.at, &sc.keyRef, &sc.digest,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan recipe: %w", err)
	}

	args, err := unmarshalObject(argsJSON)
	if err != nil {
		return nil, fmt.Errorf("recipe %s arguments: %w", r.ID, err)
	}
	r.Arguments = args

	sig, err := sc.signature()
	if err != nil {
		return nil, fmt.Errorf("recipe %s signature: %w", r.ID, err)
	}
	r.Signature = sig
	return &r, nil
}

func scanAction(row rowScanner) (*ir.Action, error) {
	var (
		a          ir.Action
		schemaJSON string
		sc         signatureColumns
	)
	if err := row.Scan(
		&a.ID, &a.Name, &a.Implementation, &schemaJSON,
		&sc.bytes, &sc.at, &sc.keyRef, &sc.digest,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan action: %w", err)
	}

	schema, err := unmarshalObject(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("action %s arguments schema: %w", a.ID, err)
	}
	a.ArgumentsSchema = schema

	sig, err := sc.signature()
	if err != nil {
		return nil, fmt.Errorf("action %s signature: %w", a.ID, err)
	}
	a.Signature = sig
	return &a, nil
}
