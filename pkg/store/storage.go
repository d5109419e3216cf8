package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/preassembly"
)

var ErrNotFound = errors.New("not found")

// AssemblyStorage persists preassembly results per batch. Saving a batch
// again replaces its previous result, so redelivered batches are harmless.
type AssemblyStorage interface {
	SaveResult(ctx context.Context, batchID string, res *preassembly.Result) error
	DeleteBatch(ctx context.Context, batchID string) error

	GetGroup(ctx context.Context, batchID string, hash int64) (*StoredGroup, error)
	GetSupport(ctx context.Context, batchID string, hash int64) (*Support, error)
	GetTopLevel(ctx context.Context, batchID string) ([]*StoredGroup, error)
	GetDiagnostics(ctx context.Context, batchID string) ([]common.Diagnostic, error)
}

// StoredGroup is a persisted statement group. Statement holds the
// representative in statement JSON.
type StoredGroup struct {
	BatchID       string          `json:"batch_id"`
	Hash          int64           `json:"hash"`
	Key           string          `json:"key"`
	StatementID   string          `json:"statement_id"`
	Type          string          `json:"type"`
	Statement     json.RawMessage `json:"statement"`
	Members       []string        `json:"members"`
	EvidenceCount int             `json:"evidence_count"`
	TopLevel      bool            `json:"top_level"`
}

// Support lists the groups refining a group (Supports) and the groups it
// refines (SupportedBy) by hash.
type Support struct {
	Hash        int64   `json:"hash"`
	Supports    []int64 `json:"supports"`
	SupportedBy []int64 `json:"supported_by"`
}
