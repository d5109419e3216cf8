package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
)

const selectGroupColumns = `batch_id, hash, match_key, statement_id, stmt_type, statement, members, evidence_count, top_level`

func scanGroup(row pgxv5.Row) (*store.StoredGroup, error) {
	var g store.StoredGroup
	err := row.Scan(&g.BatchID, &g.Hash, &g.Key, &g.StatementID, &g.Type, &g.Statement, &g.Members, &g.EvidenceCount, &g.TopLevel)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroup loads one deduplicated statement by its hash.
func (s *AssemblyDBStorage) GetGroup(ctx context.Context, batchID string, hash int64) (*store.StoredGroup, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+selectGroupColumns+` FROM pa_statements WHERE batch_id = $1 AND hash = $2`,
		batchID, hash,
	)
	g, err := scanGroup(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", hash, err)
	}
	return g, nil
}

// GetTopLevel returns the statements no other statement refines, ordered by
// evidence count.
func (s *AssemblyDBStorage) GetTopLevel(ctx context.Context, batchID string) ([]*store.StoredGroup, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT `+selectGroupColumns+` FROM pa_statements
		WHERE batch_id = $1 AND top_level
		ORDER BY evidence_count DESC, hash`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top level statements: %w", err)
	}
	defer rows.Close()

	groups := make([]*store.StoredGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetSupport returns the direct refinement neighbors of a statement.
func (s *AssemblyDBStorage) GetSupport(ctx context.Context, batchID string, hash int64) (*store.Support, error) {
	var exists bool
	err := s.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pa_statements WHERE batch_id = $1 AND hash = $2)`,
		batchID, hash,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	support := &store.Support{Hash: hash}
	// the general statement supports the specific one
	support.Supports, err = s.hashes(ctx,
		`SELECT specific_hash FROM pa_support WHERE batch_id = $1 AND general_hash = $2 ORDER BY specific_hash`,
		batchID, hash,
	)
	if err != nil {
		return nil, err
	}
	support.SupportedBy, err = s.hashes(ctx,
		`SELECT general_hash FROM pa_support WHERE batch_id = $1 AND specific_hash = $2 ORDER BY general_hash`,
		batchID, hash,
	)
	if err != nil {
		return nil, err
	}
	return support, nil
}

func (s *AssemblyDBStorage) hashes(ctx context.Context, sql string, args ...any) ([]int64, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	hashes, err := pgxv5.CollectRows(rows, pgxv5.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

// GetDiagnostics returns the diagnostics recorded for a batch in insertion
// order.
func (s *AssemblyDBStorage) GetDiagnostics(ctx context.Context, batchID string) ([]common.Diagnostic, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT kind, source, message, items FROM pa_diagnostics WHERE batch_id = $1 ORDER BY id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := make([]common.Diagnostic, 0)
	for rows.Next() {
		var (
			d    common.Diagnostic
			kind string
		)
		if err := rows.Scan(&kind, &d.Source, &d.Message, &d.Items); err != nil {
			return nil, err
		}
		d.Kind = common.DiagnosticKind(kind)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
