package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/storage"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/util"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/preassembly"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/store"

	"github.com/go-playground/validator"
)

// ErrInvalidMessage marks messages that can never succeed.
var ErrInvalidMessage = errors.New("invalid message")

// PreassembleMsg asks for one batch of statements to be preassembled. The
// statements are sent inline or stored as a JSON list under StatementsKey.
// With ResultKey set, the result report is also written to that key, with
// the top level evidence flattened when Flatten names a direction.
type PreassembleMsg struct {
	BatchID       string          `json:"batch_id" validate:"required,max=128"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Statements    json.RawMessage `json:"statements,omitempty"`
	StatementsKey string          `json:"statements_key,omitempty"`
	ResultKey     string          `json:"result_key,omitempty"`
	Flatten       string          `json:"flatten,omitempty" validate:"omitempty,oneof=supports supported_by"`
}

// DoneEvent is published on DoneTopic after a batch was stored.
type DoneEvent struct {
	BatchID        string         `json:"batch_id"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	Statements     int            `json:"statements"`
	Groups         int            `json:"groups"`
	TopLevel       int            `json:"top_level"`
	Refinements    int            `json:"refinements"`
	Contradictions int            `json:"contradictions"`
	Diagnostics    map[string]int `json:"diagnostics"`
	ResultKey      string         `json:"result_key,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// TopicPublisher publishes events by routing key.
type TopicPublisher interface {
	PublishTopic(topic string, data []byte) error
}

// Processor handles preassembly messages.
type Processor struct {
	preassembler *preassembly.Preassembler
	storage      store.AssemblyStorage
	objects      storage.ObjectAPI
	bucket       string
	events       TopicPublisher
	tries        int
	backoff      util.Backoff
	validate     *validator.Validate
}

// NewProcessorParams configures a Processor. Objects and Bucket are only
// needed for messages that reference S3 keys; Events may be nil.
type NewProcessorParams struct {
	Preassembler *preassembly.Preassembler
	Storage      store.AssemblyStorage
	Objects      storage.ObjectAPI
	Bucket       string
	Events       TopicPublisher
	// Tries bounds the attempts of each S3 or database call, defaults to 3.
	Tries   int
	Backoff util.Backoff
}

func NewProcessor(params NewProcessorParams) *Processor {
	tries := params.Tries
	if tries <= 0 {
		tries = 3
	}
	backoff := params.Backoff
	if backoff == nil {
		backoff = util.ExponentialBackoff(500*time.Millisecond, 10*time.Second)
	}
	return &Processor{
		preassembler: params.Preassembler,
		storage:      params.Storage,
		objects:      params.Objects,
		bucket:       params.Bucket,
		events:       params.Events,
		tries:        tries,
		backoff:      backoff,
		validate:     validator.New(),
	}
}

func (p *Processor) parse(body []byte) (*PreassembleMsg, error) {
	msg := new(PreassembleMsg)
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := p.validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	hasInline := len(msg.Statements) > 0 && string(msg.Statements) != "null"
	if hasInline == (msg.StatementsKey != "") {
		return nil, fmt.Errorf("%w: exactly one of statements and statements_key is required", ErrInvalidMessage)
	}
	if (msg.StatementsKey != "" || msg.ResultKey != "") && p.objects == nil {
		return nil, fmt.Errorf("%w: s3 keys given but no object storage configured", ErrInvalidMessage)
	}
	return msg, nil
}

func (p *Processor) loadStatements(ctx context.Context, msg *PreassembleMsg) ([]statements.Statement, error) {
	data := []byte(msg.Statements)
	if msg.StatementsKey != "" {
		var err error
		data, err = util.RetryWithContext(ctx, p.tries, p.backoff, func(ctx context.Context) ([]byte, error) {
			return storage.GetFile(ctx, p.objects, p.bucket, msg.StatementsKey)
		})
		if err != nil {
			return nil, err
		}
	}

	stmts, err := statements.UnmarshalList(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return stmts, nil
}

// ProcessPreassembleMessage preassembles one batch, replaces its stored
// result and announces it on DoneTopic. Errors wrapping ErrInvalidMessage
// will fail again on redelivery.
func (p *Processor) ProcessPreassembleMessage(ctx context.Context, body []byte) error {
	start := time.Now()

	msg, err := p.parse(body)
	if err != nil {
		return err
	}
	stmts, err := p.loadStatements(ctx, msg)
	if err != nil {
		return err
	}
	logger.Info("[Queue] Preassembling batch", "batch_id", msg.BatchID, "statements", len(stmts))

	res, err := p.preassembler.Run(ctx, stmts)
	if err != nil {
		return fmt.Errorf("preassembly of batch %s failed: %w", msg.BatchID, err)
	}

	err = util.RetryErrWithContext(ctx, p.tries, p.backoff, func(ctx context.Context) error {
		return p.storage.SaveResult(ctx, msg.BatchID, res)
	})
	if err != nil {
		return fmt.Errorf("failed to store batch %s: %w", msg.BatchID, err)
	}

	if msg.ResultKey != "" {
		rep := res.Report()
		if msg.Flatten != "" {
			if rep, err = res.FlattenedReport(preassembly.SupportType(msg.Flatten)); err != nil {
				return fmt.Errorf("failed to flatten evidence: %w", err)
			}
		}
		report, err := json.Marshal(rep)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		err = util.RetryErrWithContext(ctx, p.tries, p.backoff, func(ctx context.Context) error {
			return storage.PutFile(ctx, p.objects, p.bucket, msg.ResultKey, "application/json", report)
		})
		if err != nil {
			return err
		}
	}

	event := DoneEvent{
		BatchID:        msg.BatchID,
		CorrelationID:  msg.CorrelationID,
		Statements:     len(stmts),
		Groups:         len(res.Groups),
		TopLevel:       len(res.Refinements.TopLevel()),
		Refinements:    len(res.Refinements.Edges()),
		Contradictions: len(res.Contradictions),
		Diagnostics:    make(map[string]int),
		ResultKey:      msg.ResultKey,
		DurationMs:     time.Since(start).Milliseconds(),
	}
	for kind, n := range res.Diagnostics.Summary() {
		event.Diagnostics[string(kind)] = n
	}

	if p.events != nil {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		// not retried, the batch is already stored
		if err := p.events.PublishTopic(DoneTopic, data); err != nil {
			logger.Error("[Queue] Failed to publish done event", "batch_id", msg.BatchID, "err", err)
		}
	}

	logger.Info("[Queue] Batch stored",
		append([]any{"batch_id", msg.BatchID, "groups", event.Groups, "top_level", event.TopLevel}, res.Diagnostics.KeyValues()...)...,
	)
	return nil
}
