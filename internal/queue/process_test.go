package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/util"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/preassembly"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeStorage struct {
	failures int
	saved    map[string]*preassembly.Result
	calls    int
}

func (s *fakeStorage) SaveResult(ctx context.Context, batchID string, res *preassembly.Result) error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("connection reset")
	}
	if s.saved == nil {
		s.saved = make(map[string]*preassembly.Result)
	}
	s.saved[batchID] = res
	return nil
}

func (s *fakeStorage) DeleteBatch(ctx context.Context, batchID string) error {
	delete(s.saved, batchID)
	return nil
}

func (s *fakeStorage) GetGroup(ctx context.Context, batchID string, hash int64) (*store.StoredGroup, error) {
	return nil, store.ErrNotFound
}

func (s *fakeStorage) GetSupport(ctx context.Context, batchID string, hash int64) (*store.Support, error) {
	return nil, store.ErrNotFound
}

func (s *fakeStorage) GetTopLevel(ctx context.Context, batchID string) ([]*store.StoredGroup, error) {
	return nil, nil
}

func (s *fakeStorage) GetDiagnostics(ctx context.Context, batchID string) ([]common.Diagnostic, error) {
	return nil, nil
}

type fakeObjects struct {
	objects map[string][]byte
}

func (o *fakeObjects) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := o.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (o *fakeObjects) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	o.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

type fakeEvents struct {
	topics []string
	events [][]byte
}

func (e *fakeEvents) PublishTopic(topic string, data []byte) error {
	e.topics = append(e.topics, topic)
	e.events = append(e.events, data)
	return nil
}

const batchStatements = `[
	{"type": "Phosphorylation", "id": "s1", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}}},
	{"type": "Phosphorylation", "id": "s2", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}}, "residue": "S", "position": "218"},
	{"type": "Phosphorylation", "id": "s3", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}}, "residue": "S", "position": "218"}
]`

func newTestProcessor(st *fakeStorage, objects *fakeObjects, events *fakeEvents) *Processor {
	params := NewProcessorParams{
		Preassembler: preassembly.NewPreassembler(preassembly.NewPreassemblerParams{Parallel: 1}),
		Storage:      st,
		Bucket:       "batches",
		Tries:        3,
		Backoff:      util.NoBackoff,
	}
	if objects != nil {
		params.Objects = objects
	}
	if events != nil {
		params.Events = events
	}
	return NewProcessor(params)
}

func TestProcessInlineBatch(t *testing.T) {
	st := &fakeStorage{failures: 2}
	events := &fakeEvents{}
	p := newTestProcessor(st, nil, events)

	body := []byte(`{"batch_id": "b1", "correlation_id": "c1", "statements": ` + batchStatements + `}`)
	if err := p.ProcessPreassembleMessage(context.Background(), body); err != nil {
		t.Fatalf("process: %v", err)
	}
	if st.calls != 3 {
		t.Fatalf("expected the save to be retried, got %d calls", st.calls)
	}
	res := st.saved["b1"]
	if res == nil || len(res.Groups) != 2 {
		t.Fatalf("unexpected stored result %+v", res)
	}

	if len(events.topics) != 1 || events.topics[0] != DoneTopic {
		t.Fatalf("expected one done event, got %v", events.topics)
	}
	var event DoneEvent
	if err := json.Unmarshal(events.events[0], &event); err != nil {
		t.Fatalf("event: %v", err)
	}
	if event.BatchID != "b1" || event.CorrelationID != "c1" || event.Statements != 3 || event.Groups != 2 || event.TopLevel != 1 || event.Refinements != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestProcessS3Batch(t *testing.T) {
	st := &fakeStorage{}
	objects := &fakeObjects{objects: map[string][]byte{"in/b2.json": []byte(batchStatements)}}
	p := newTestProcessor(st, objects, nil)

	body := []byte(`{"batch_id": "b2", "statements_key": "in/b2.json", "result_key": "out/b2.json"}`)
	if err := p.ProcessPreassembleMessage(context.Background(), body); err != nil {
		t.Fatalf("process: %v", err)
	}

	if st.saved["b2"] == nil {
		t.Fatalf("batch b2 not stored")
	}
	data, ok := objects.objects["out/b2.json"]
	if !ok {
		t.Fatalf("report not written to out/b2.json")
	}
	var report struct {
		TopLevel []string `json:"top_level"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.TopLevel) != 1 {
		t.Fatalf("unexpected report top level %v", report.TopLevel)
	}
}

func TestProcessFlattenedReport(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{}}
	p := newTestProcessor(&fakeStorage{}, objects, &fakeEvents{})

	stmts := `[
		{"type": "Phosphorylation", "id": "s1", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}},
		 "evidence": [{"source_api": "reach", "text": "general"}]},
		{"type": "Phosphorylation", "id": "s2", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}}, "residue": "S", "position": "218",
		 "evidence": [{"source_api": "reach", "text": "specific"}]}
	]`
	body := []byte(`{"batch_id": "b3", "statements": ` + stmts + `, "result_key": "out/b3.json", "flatten": "supported_by"}`)
	if err := p.ProcessPreassembleMessage(context.Background(), body); err != nil {
		t.Fatalf("process: %v", err)
	}

	var report struct {
		Flattened []struct {
			ID       string `json:"id"`
			Evidence []struct {
				Text        string         `json:"text"`
				Annotations map[string]any `json:"annotations"`
			} `json:"evidence"`
		} `json:"flattened"`
	}
	if err := json.Unmarshal(objects.objects["out/b3.json"], &report); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Flattened) != 1 || report.Flattened[0].ID != "s2" || len(report.Flattened[0].Evidence) != 2 {
		t.Fatalf("unexpected flattened report %+v", report.Flattened)
	}
	if got := report.Flattened[0].Evidence[1]; got.Text != "general" || got.Annotations["support_type"] != "supported_by" {
		t.Fatalf("unexpected collected evidence %+v", got)
	}
}

func TestProcessInvalidMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `statements`},
		{name: "missing batch id", body: `{"statements": []}`},
		{name: "no statements", body: `{"batch_id": "b"}`},
		{name: "both sources", body: `{"batch_id": "b", "statements": [], "statements_key": "k"}`},
		{name: "key without object storage", body: `{"batch_id": "b", "statements_key": "k"}`},
		{name: "unknown statement type", body: `{"batch_id": "b", "statements": [{"type": "Teleportation"}]}`},
		{name: "unknown flatten direction", body: `{"batch_id": "b", "statements": [], "flatten": "sideways"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStorage{}
			p := newTestProcessor(st, nil, nil)
			err := p.ProcessPreassembleMessage(context.Background(), []byte(tt.body))
			if !errors.Is(err, ErrInvalidMessage) {
				t.Fatalf("expected ErrInvalidMessage, got %v", err)
			}
			if st.calls != 0 {
				t.Fatalf("invalid message reached the store")
			}
		})
	}
}

func TestProcessMissingObjectIsRetryable(t *testing.T) {
	p := newTestProcessor(&fakeStorage{}, &fakeObjects{objects: map[string][]byte{}}, nil)
	err := p.ProcessPreassembleMessage(context.Background(), []byte(`{"batch_id": "b", "statements_key": "absent"}`))
	if err == nil || errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
}
