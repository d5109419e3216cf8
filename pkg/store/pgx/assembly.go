package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/util"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/preassembly"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const insertChunkSize = 1000

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// AssemblyDBStorage implements store.AssemblyStorage on PostgreSQL.
type AssemblyDBStorage struct {
	conn pgxIConn
}

// NewAssemblyDBStorageWithConnection creates an AssemblyDBStorage on an
// existing connection or pool.
func NewAssemblyDBStorageWithConnection(conn pgxIConn) *AssemblyDBStorage {
	return &AssemblyDBStorage{conn: conn}
}

type statementRow struct {
	Hash          int64
	Key           string
	StatementID   string
	Type          string
	Statement     []byte
	Members       []string
	EvidenceCount int
	TopLevel      bool
}

type pairRow struct {
	First, Second int64
}

type resultRows struct {
	statements     []statementRow
	support        []pairRow
	contradictions []pairRow
	diagnostics    []common.Diagnostic
}

// planResult converts a result into table rows. Text is stripped of
// characters PostgreSQL rejects; groups whose hash collides with an earlier
// group are dropped.
func planResult(res *preassembly.Result) (*resultRows, error) {
	rows := &resultRows{}

	top := make(map[string]bool)
	hashes := make(map[string]int64, len(res.Groups))
	seen := make(map[int64]string, len(res.Groups))
	if res.Refinements != nil {
		for _, g := range res.Refinements.TopLevel() {
			top[g.Key] = true
		}
	}

	for _, g := range res.Groups {
		if other, ok := seen[g.Hash]; ok {
			logger.Warn("[Store] Dropping group with colliding hash", "hash", g.Hash, "key", g.Key, "other", other)
			continue
		}
		seen[g.Hash] = g.Key
		hashes[g.Key] = g.Hash

		stmt := g.Statement.Clone()
		meta := stmt.Metadata()
		for i := range meta.Evidence {
			meta.Evidence[i].Text = util.SanitizePostgresText(meta.Evidence[i].Text)
		}
		data, err := json.Marshal(stmt)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal statement %s: %w", meta.ID, err)
		}

		rows.statements = append(rows.statements, statementRow{
			Hash:          g.Hash,
			Key:           util.SanitizePostgresText(g.Key),
			StatementID:   meta.ID,
			Type:          stmt.Type(),
			Statement:     data,
			Members:       store.DedupeStrings(g.Members),
			EvidenceCount: len(meta.Evidence),
			TopLevel:      top[g.Key],
		})
	}

	if res.Refinements != nil {
		for _, e := range res.Refinements.Edges() {
			specific, ok1 := hashes[e.Specific]
			general, ok2 := hashes[e.General]
			if ok1 && ok2 {
				rows.support = append(rows.support, pairRow{First: specific, Second: general})
			}
		}
	}

	for _, c := range res.Contradictions {
		first, ok1 := hashes[c.First.Key]
		second, ok2 := hashes[c.Second.Key]
		if ok1 && ok2 {
			rows.contradictions = append(rows.contradictions, pairRow{First: first, Second: second})
		}
	}

	if res.Diagnostics != nil {
		for _, d := range res.Diagnostics.Entries() {
			d.Message = util.SanitizePostgresText(d.Message)
			d.Source = util.SanitizePostgresText(d.Source)
			d.Items = util.SanitizePostgresTexts(d.Items)
			rows.diagnostics = append(rows.diagnostics, d)
		}
	}
	return rows, nil
}

// SaveResult replaces the stored result of batchID in one transaction.
func (s *AssemblyDBStorage) SaveResult(ctx context.Context, batchID string, res *preassembly.Result) error {
	rows, err := planResult(res)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteBatch(ctx, tx, batchID); err != nil {
		return err
	}

	err = store.ChunkRange(len(rows.statements), insertChunkSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, r := range rows.statements[start:end] {
			batch.Queue(insertStatementSQL, batchID, r.Hash, r.Key, r.StatementID, r.Type, r.Statement, r.Members, r.EvidenceCount, r.TopLevel)
		}
		return sendBatch(ctx, tx, batch, "statements")
	})
	if err != nil {
		return err
	}

	if err := insertPairs(ctx, tx, insertSupportSQL, batchID, rows.support, "support"); err != nil {
		return err
	}
	if err := insertPairs(ctx, tx, insertContradictionSQL, batchID, rows.contradictions, "contradictions"); err != nil {
		return err
	}

	err = store.ChunkRange(len(rows.diagnostics), insertChunkSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, d := range rows.diagnostics[start:end] {
			batch.Queue(insertDiagnosticSQL, batchID, string(d.Kind), d.Source, d.Message, d.Items)
		}
		return sendBatch(ctx, tx, batch, "diagnostics")
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}

	logger.Debug("[Store] Saved preassembly result",
		"batch", batchID,
		"groups", len(rows.statements),
		"support", len(rows.support),
		"contradictions", len(rows.contradictions),
		"diagnostics", len(rows.diagnostics),
	)
	return nil
}

// DeleteBatch removes everything stored for batchID.
func (s *AssemblyDBStorage) DeleteBatch(ctx context.Context, batchID string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteBatch(ctx, tx, batchID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func deleteBatch(ctx context.Context, tx pgxv5.Tx, batchID string) error {
	for _, table := range []string{"pa_statements", "pa_support", "pa_contradictions", "pa_diagnostics"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE batch_id = $1", batchID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertPairs(ctx context.Context, tx pgxv5.Tx, sql, batchID string, pairs []pairRow, name string) error {
	return store.ChunkRange(len(pairs), insertChunkSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, p := range pairs[start:end] {
			batch.Queue(sql, batchID, p.First, p.Second)
		}
		return sendBatch(ctx, tx, batch, name)
	})
}

func sendBatch(ctx context.Context, tx pgxv5.Tx, batch *pgxv5.Batch, name string) error {
	br := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert %s: %w", name, err)
		}
	}
	return br.Close()
}

const insertStatementSQL = `
INSERT INTO pa_statements (batch_id, hash, match_key, statement_id, stmt_type, statement, members, evidence_count, top_level)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (batch_id, hash) DO NOTHING;
`

const insertSupportSQL = `
INSERT INTO pa_support (batch_id, specific_hash, general_hash)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING;
`

const insertContradictionSQL = `
INSERT INTO pa_contradictions (batch_id, first_hash, second_hash)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING;
`

const insertDiagnosticSQL = `
INSERT INTO pa_diagnostics (batch_id, kind, source, message, items)
VALUES ($1, $2, $3, $4, $5);
`
