// Package statements holds the mechanism statements consumed by the
// preassembly engine and their JSON form.
package statements

import (
	"slices"
	"strings"
)

// Statement is one of the closed set of statement types of this package.
type Statement interface {
	// Type is the statement type name, e.g. "Phosphorylation".
	Type() string
	Metadata() *Meta
	// Agents returns the argument agents in canonical order. Missing
	// optional arguments are nil.
	Agents() []*Agent
	Roles() []Role
	Clone() Statement
}

// Role is a named argument position and the agents that fill it.
type Role struct {
	Name   string
	Agents []*Agent
}

// Meta carries the fields every statement shares.
type Meta struct {
	ID          string     `json:"id"`
	Belief      float64    `json:"belief"`
	Evidence    []Evidence `json:"evidence,omitempty"`
	Supports    []string   `json:"supports,omitempty"`
	SupportedBy []string   `json:"supported_by,omitempty"`
}

func (m *Meta) Metadata() *Meta { return m }

func (m Meta) clone() Meta {
	c := Meta{
		ID:          m.ID,
		Belief:      m.Belief,
		Supports:    slices.Clone(m.Supports),
		SupportedBy: slices.Clone(m.SupportedBy),
	}
	if m.Evidence != nil {
		c.Evidence = make([]Evidence, len(m.Evidence))
		for i, ev := range m.Evidence {
			c.Evidence[i] = ev.Clone()
		}
	}
	return c
}

const (
	TypeAutophosphorylation  = "Autophosphorylation"
	TypeTransphosphorylation = "Transphosphorylation"
	TypeActivation           = "Activation"
	TypeInhibition           = "Inhibition"
	TypeIncreaseAmount       = "IncreaseAmount"
	TypeDecreaseAmount       = "DecreaseAmount"
	TypeActiveForm           = "ActiveForm"
	TypeHasActivity          = "HasActivity"
	TypeGef                  = "Gef"
	TypeGap                  = "Gap"
	TypeComplex              = "Complex"
	TypeTranslocation        = "Translocation"
	TypeConversion           = "Conversion"
)

// ModificationStatementType returns the statement type for a modification
// type: "phosphorylation" becomes "Phosphorylation".
func ModificationStatementType(modType string) string {
	if modType == "" {
		return ""
	}
	return strings.ToUpper(modType[:1]) + modType[1:]
}

// Modification is an enzyme adding or removing a modification on a
// substrate. Kind is one of the 24 modification statement types.
type Modification struct {
	Kind string `json:"-"`
	Meta
	Enz      *Agent `json:"enz,omitempty"`
	Sub      *Agent `json:"sub,omitempty"`
	Residue  string `json:"residue,omitempty"`
	Position Site   `json:"position,omitempty"`
}

func (s *Modification) Type() string { return s.Kind }

// ModType is the modification type, e.g. "dephosphorylation".
func (s *Modification) ModType() string { return strings.ToLower(s.Kind) }

// IsRemoval reports whether the statement removes a modification.
func (s *Modification) IsRemoval() bool {
	for _, add := range AddModificationTypes {
		if s.ModType() == "de"+add {
			return true
		}
	}
	return false
}

func (s *Modification) Agents() []*Agent { return []*Agent{s.Enz, s.Sub} }

func (s *Modification) Roles() []Role {
	return []Role{{Name: "enz", Agents: []*Agent{s.Enz}}, {Name: "sub", Agents: []*Agent{s.Sub}}}
}

func (s *Modification) Clone() Statement {
	return &Modification{
		Kind:     s.Kind,
		Meta:     s.Meta.clone(),
		Enz:      s.Enz.Clone(),
		Sub:      s.Sub.Clone(),
		Residue:  s.Residue,
		Position: s.Position,
	}
}

// SelfModification is an agent modifying itself (Autophosphorylation) or
// a bound partner of the same kind (Transphosphorylation).
type SelfModification struct {
	Kind string `json:"-"`
	Meta
	Enz      *Agent `json:"enz,omitempty"`
	Residue  string `json:"residue,omitempty"`
	Position Site   `json:"position,omitempty"`
}

func (s *SelfModification) Type() string     { return s.Kind }
func (s *SelfModification) Agents() []*Agent { return []*Agent{s.Enz} }

func (s *SelfModification) Roles() []Role {
	return []Role{{Name: "enz", Agents: []*Agent{s.Enz}}}
}

func (s *SelfModification) Clone() Statement {
	return &SelfModification{
		Kind:     s.Kind,
		Meta:     s.Meta.clone(),
		Enz:      s.Enz.Clone(),
		Residue:  s.Residue,
		Position: s.Position,
	}
}

// RegulateActivity is an Activation or Inhibition of the object's activity.
type RegulateActivity struct {
	Kind string `json:"-"`
	Meta
	Subj        *Agent `json:"subj,omitempty"`
	Obj         *Agent `json:"obj,omitempty"`
	ObjActivity string `json:"obj_activity,omitempty"`
}

func (s *RegulateActivity) Type() string       { return s.Kind }
func (s *RegulateActivity) IsActivation() bool { return s.Kind == TypeActivation }
func (s *RegulateActivity) Agents() []*Agent   { return []*Agent{s.Subj, s.Obj} }

func (s *RegulateActivity) Roles() []Role {
	return []Role{{Name: "subj", Agents: []*Agent{s.Subj}}, {Name: "obj", Agents: []*Agent{s.Obj}}}
}

func (s *RegulateActivity) Clone() Statement {
	return &RegulateActivity{
		Kind:        s.Kind,
		Meta:        s.Meta.clone(),
		Subj:        s.Subj.Clone(),
		Obj:         s.Obj.Clone(),
		ObjActivity: s.ObjActivity,
	}
}

// RegulateAmount is an IncreaseAmount or DecreaseAmount of the object. The
// subject is optional.
type RegulateAmount struct {
	Kind string `json:"-"`
	Meta
	Subj *Agent `json:"subj,omitempty"`
	Obj  *Agent `json:"obj,omitempty"`
}

func (s *RegulateAmount) Type() string     { return s.Kind }
func (s *RegulateAmount) Agents() []*Agent { return []*Agent{s.Subj, s.Obj} }

func (s *RegulateAmount) Roles() []Role {
	return []Role{{Name: "subj", Agents: []*Agent{s.Subj}}, {Name: "obj", Agents: []*Agent{s.Obj}}}
}

func (s *RegulateAmount) Clone() Statement {
	return &RegulateAmount{Kind: s.Kind, Meta: s.Meta.clone(), Subj: s.Subj.Clone(), Obj: s.Obj.Clone()}
}

// ActiveForm states that the agent in its given state has (IsActive) or
// lacks an activity.
type ActiveForm struct {
	Meta
	Agent    *Agent `json:"agent,omitempty"`
	Activity string `json:"activity"`
	IsActive bool   `json:"is_active"`
}

func (s *ActiveForm) Type() string     { return TypeActiveForm }
func (s *ActiveForm) Agents() []*Agent { return []*Agent{s.Agent} }

func (s *ActiveForm) Roles() []Role {
	return []Role{{Name: "agent", Agents: []*Agent{s.Agent}}}
}

func (s *ActiveForm) Clone() Statement {
	return &ActiveForm{Meta: s.Meta.clone(), Agent: s.Agent.Clone(), Activity: s.Activity, IsActive: s.IsActive}
}

// HasActivity states that an agent has or lacks an activity type.
type HasActivity struct {
	Meta
	Agent       *Agent `json:"agent,omitempty"`
	Activity    string `json:"activity"`
	HasActivity bool   `json:"has_activity"`
}

func (s *HasActivity) Type() string     { return TypeHasActivity }
func (s *HasActivity) Agents() []*Agent { return []*Agent{s.Agent} }

func (s *HasActivity) Roles() []Role {
	return []Role{{Name: "agent", Agents: []*Agent{s.Agent}}}
}

func (s *HasActivity) Clone() Statement {
	return &HasActivity{Meta: s.Meta.clone(), Agent: s.Agent.Clone(), Activity: s.Activity, HasActivity: s.HasActivity}
}

// Gef is nucleotide exchange on a GTPase catalyzed by a GEF.
type Gef struct {
	Meta
	GEF *Agent `json:"gef,omitempty"`
	Ras *Agent `json:"ras,omitempty"`
}

func (s *Gef) Type() string     { return TypeGef }
func (s *Gef) Agents() []*Agent { return []*Agent{s.GEF, s.Ras} }

func (s *Gef) Roles() []Role {
	return []Role{{Name: "gef", Agents: []*Agent{s.GEF}}, {Name: "ras", Agents: []*Agent{s.Ras}}}
}

func (s *Gef) Clone() Statement {
	return &Gef{Meta: s.Meta.clone(), GEF: s.GEF.Clone(), Ras: s.Ras.Clone()}
}

// Gap is GTP hydrolysis on a GTPase accelerated by a GAP.
type Gap struct {
	Meta
	GAP *Agent `json:"gap,omitempty"`
	Ras *Agent `json:"ras,omitempty"`
}

func (s *Gap) Type() string     { return TypeGap }
func (s *Gap) Agents() []*Agent { return []*Agent{s.GAP, s.Ras} }

func (s *Gap) Roles() []Role {
	return []Role{{Name: "gap", Agents: []*Agent{s.GAP}}, {Name: "ras", Agents: []*Agent{s.Ras}}}
}

func (s *Gap) Clone() Statement {
	return &Gap{Meta: s.Meta.clone(), GAP: s.GAP.Clone(), Ras: s.Ras.Clone()}
}

// Complex is a set of agents observed bound together. Member order carries
// no meaning.
type Complex struct {
	Meta
	Members []*Agent `json:"members"`
}

func (s *Complex) Type() string     { return TypeComplex }
func (s *Complex) Agents() []*Agent { return slices.Clone(s.Members) }

func (s *Complex) Roles() []Role {
	return []Role{{Name: "members", Agents: slices.Clone(s.Members)}}
}

func (s *Complex) Clone() Statement {
	return &Complex{Meta: s.Meta.clone(), Members: cloneAgents(s.Members)}
}

// Translocation moves an agent between cellular locations. Locations are
// GO cellular component names or GO ids.
type Translocation struct {
	Meta
	Agent        *Agent `json:"agent,omitempty"`
	FromLocation string `json:"from_location,omitempty"`
	ToLocation   string `json:"to_location,omitempty"`
}

func (s *Translocation) Type() string     { return TypeTranslocation }
func (s *Translocation) Agents() []*Agent { return []*Agent{s.Agent} }

func (s *Translocation) Roles() []Role {
	return []Role{{Name: "agent", Agents: []*Agent{s.Agent}}}
}

func (s *Translocation) Clone() Statement {
	return &Translocation{
		Meta:         s.Meta.clone(),
		Agent:        s.Agent.Clone(),
		FromLocation: s.FromLocation,
		ToLocation:   s.ToLocation,
	}
}

// Conversion turns ObjFrom species into ObjTo species, optionally controlled
// by Subj.
type Conversion struct {
	Meta
	Subj    *Agent   `json:"subj,omitempty"`
	ObjFrom []*Agent `json:"obj_from"`
	ObjTo   []*Agent `json:"obj_to"`
}

func (s *Conversion) Type() string { return TypeConversion }

func (s *Conversion) Agents() []*Agent {
	agents := []*Agent{s.Subj}
	agents = append(agents, s.ObjFrom...)
	return append(agents, s.ObjTo...)
}

func (s *Conversion) Roles() []Role {
	return []Role{
		{Name: "subj", Agents: []*Agent{s.Subj}},
		{Name: "obj_from", Agents: slices.Clone(s.ObjFrom)},
		{Name: "obj_to", Agents: slices.Clone(s.ObjTo)},
	}
}

func (s *Conversion) Clone() Statement {
	return &Conversion{
		Meta:    s.Meta.clone(),
		Subj:    s.Subj.Clone(),
		ObjFrom: cloneAgents(s.ObjFrom),
		ObjTo:   cloneAgents(s.ObjTo),
	}
}

func cloneAgents(agents []*Agent) []*Agent {
	if agents == nil {
		return nil
	}
	out := make([]*Agent, len(agents))
	for i, a := range agents {
		out[i] = a.Clone()
	}
	return out
}
