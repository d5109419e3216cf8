package statements

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrUnknownType = errors.New("unknown statement type")

// factories create an empty statement of a type with its JSON defaults.
var factories = map[string]func() Statement{
	TypeAutophosphorylation:  func() Statement { return &SelfModification{Kind: TypeAutophosphorylation} },
	TypeTransphosphorylation: func() Statement { return &SelfModification{Kind: TypeTransphosphorylation} },
	TypeActivation:           func() Statement { return &RegulateActivity{Kind: TypeActivation, ObjActivity: "activity"} },
	TypeInhibition:           func() Statement { return &RegulateActivity{Kind: TypeInhibition, ObjActivity: "activity"} },
	TypeIncreaseAmount:       func() Statement { return &RegulateAmount{Kind: TypeIncreaseAmount} },
	TypeDecreaseAmount:       func() Statement { return &RegulateAmount{Kind: TypeDecreaseAmount} },
	TypeActiveForm:           func() Statement { return &ActiveForm{Activity: "activity", IsActive: true} },
	TypeHasActivity:          func() Statement { return &HasActivity{Activity: "activity", HasActivity: true} },
	TypeGef:                  func() Statement { return &Gef{} },
	TypeGap:                  func() Statement { return &Gap{} },
	TypeComplex:              func() Statement { return &Complex{} },
	TypeTranslocation:        func() Statement { return &Translocation{} },
	TypeConversion:           func() Statement { return &Conversion{} },
}

func init() {
	for _, add := range AddModificationTypes {
		for _, modType := range []string{add, "de" + add} {
			kind := ModificationStatementType(modType)
			factories[kind] = func() Statement { return &Modification{Kind: kind} }
		}
	}
}

// Types returns all known statement type names, sorted.
func Types() []string {
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// New returns an empty statement of the given type.
func New(typ string) (Statement, error) {
	factory, ok := factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return factory(), nil
}

// NewID returns a fresh statement id.
func NewID() string {
	return gonanoid.Must()
}

// Unmarshal decodes one statement. Statements without an id get a fresh one.
func Unmarshal(data []byte) (Statement, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode statement: %w", err)
	}
	stmt, err := New(head.Type)
	if err != nil {
		return nil, err
	}
	stmt.Metadata().Belief = 1
	if err := json.Unmarshal(data, stmt); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	if stmt.Metadata().ID == "" {
		stmt.Metadata().ID = NewID()
	}
	return stmt, nil
}

// UnmarshalList decodes a JSON array of statements.
func UnmarshalList(data []byte) ([]Statement, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode statements: %w", err)
	}
	stmts := make([]Statement, 0, len(raw))
	for i, r := range raw {
		stmt, err := Unmarshal(r)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// MarshalList encodes statements as a JSON array.
func MarshalList(stmts []Statement) ([]byte, error) {
	if stmts == nil {
		stmts = []Statement{}
	}
	return json.Marshal(stmts)
}

// withType encodes v and prepends the "type" discriminator.
func withType(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+len(name)+10)
	out = append(out, `{"type":`...)
	out = append(out, name...)
	if len(data) > 2 {
		out = append(out, ',')
	}
	return append(out, data[1:]...), nil
}

func (s *Modification) MarshalJSON() ([]byte, error) {
	type plain Modification
	return withType(s.Type(), (*plain)(s))
}

func (s *SelfModification) MarshalJSON() ([]byte, error) {
	type plain SelfModification
	return withType(s.Type(), (*plain)(s))
}

func (s *RegulateActivity) MarshalJSON() ([]byte, error) {
	type plain RegulateActivity
	return withType(s.Type(), (*plain)(s))
}

func (s *RegulateAmount) MarshalJSON() ([]byte, error) {
	type plain RegulateAmount
	return withType(s.Type(), (*plain)(s))
}

func (s *ActiveForm) MarshalJSON() ([]byte, error) {
	type plain ActiveForm
	return withType(s.Type(), (*plain)(s))
}

func (s *HasActivity) MarshalJSON() ([]byte, error) {
	type plain HasActivity
	return withType(s.Type(), (*plain)(s))
}

func (s *Gef) MarshalJSON() ([]byte, error) {
	type plain Gef
	return withType(s.Type(), (*plain)(s))
}

func (s *Gap) MarshalJSON() ([]byte, error) {
	type plain Gap
	return withType(s.Type(), (*plain)(s))
}

func (s *Complex) MarshalJSON() ([]byte, error) {
	type plain Complex
	return withType(s.Type(), (*plain)(s))
}

func (s *Translocation) MarshalJSON() ([]byte, error) {
	type plain Translocation
	return withType(s.Type(), (*plain)(s))
}

func (s *Conversion) MarshalJSON() ([]byte, error) {
	type plain Conversion
	return withType(s.Type(), (*plain)(s))
}
