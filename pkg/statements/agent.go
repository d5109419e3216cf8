package statements

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
)

// Agent is a molecular entity together with the state it is observed in.
type Agent struct {
	Name            string             `json:"name"`
	Mods            []ModCondition     `json:"mods,omitempty"`
	Mutations       []MutCondition     `json:"mutations,omitempty"`
	BoundConditions []BoundCondition   `json:"bound_conditions,omitempty"`
	Activity        *ActivityCondition `json:"activity,omitempty"`
	Location        string             `json:"location,omitempty"`
	DBRefs          DBRefs             `json:"db_refs"`
}

// Grounding returns the preferred (namespace, id) of the agent.
func (a *Agent) Grounding(order []string) (ns, id string, ok bool) {
	if a == nil {
		return "", "", false
	}
	return common.Grounding(a.DBRefs, order)
}

// Clone returns a deep copy. A nil agent clones to nil.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	c := &Agent{
		Name:     a.Name,
		Location: a.Location,
		DBRefs:   maps.Clone(a.DBRefs),
	}
	if a.Mods != nil {
		c.Mods = append([]ModCondition(nil), a.Mods...)
	}
	if a.Mutations != nil {
		c.Mutations = append([]MutCondition(nil), a.Mutations...)
	}
	if a.BoundConditions != nil {
		c.BoundConditions = make([]BoundCondition, len(a.BoundConditions))
		for i, bc := range a.BoundConditions {
			c.BoundConditions[i] = BoundCondition{Agent: bc.Agent.Clone(), IsBound: bc.IsBound}
		}
	}
	if a.Activity != nil {
		act := *a.Activity
		c.Activity = &act
	}
	return c
}

func (a *Agent) String() string {
	if a == nil {
		return "None"
	}
	return a.Name
}

// ModCondition is the modification state of a site.
type ModCondition struct {
	ModType    string `json:"mod_type"`
	Residue    string `json:"residue,omitempty"`
	Position   Site   `json:"position,omitempty"`
	IsModified bool   `json:"is_modified"`
}

func (m *ModCondition) UnmarshalJSON(data []byte) error {
	type plain ModCondition
	p := plain{IsModified: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Residue = NormalizeResidue(p.Residue)
	*m = ModCondition(p)
	return nil
}

// MutCondition is an amino acid substitution.
type MutCondition struct {
	Position    Site   `json:"position,omitempty"`
	ResidueFrom string `json:"residue_from,omitempty"`
	ResidueTo   string `json:"residue_to,omitempty"`
}

func (m *MutCondition) UnmarshalJSON(data []byte) error {
	type plain MutCondition
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.ResidueFrom = NormalizeResidue(p.ResidueFrom)
	p.ResidueTo = NormalizeResidue(p.ResidueTo)
	*m = MutCondition(p)
	return nil
}

// BoundCondition states that another agent is (or is not) bound.
type BoundCondition struct {
	Agent   *Agent `json:"agent"`
	IsBound bool   `json:"is_bound"`
}

func (b *BoundCondition) UnmarshalJSON(data []byte) error {
	type plain BoundCondition
	p := plain{IsBound: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = BoundCondition(p)
	return nil
}

// ActivityCondition is an active or inactive state of an activity type.
type ActivityCondition struct {
	ActivityType string `json:"activity_type"`
	IsActive     bool   `json:"is_active"`
}

func (a *ActivityCondition) UnmarshalJSON(data []byte) error {
	type plain ActivityCondition
	p := plain{IsActive: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.ActivityType == "" {
		p.ActivityType = "activity"
	}
	*a = ActivityCondition(p)
	return nil
}

// Site is a residue position. Numbers in JSON are kept as their text.
type Site string

func (s *Site) UnmarshalJSON(data []byte) error {
	v, ok := scalarString(data)
	if !ok {
		return fmt.Errorf("invalid site %s", data)
	}
	*s = Site(v)
	return nil
}

// DBRefs maps namespaces to identifiers. List values, which some readers
// emit for scored groundings, are reduced to their first entry.
type DBRefs map[string]string

func (r *DBRefs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}
	out := make(DBRefs, len(raw))
	for ns, v := range raw {
		if id, ok := scalarString(v); ok && id != "" {
			out[ns] = id
		}
	}
	*r = out
	return nil
}

func scalarString(data []byte) (string, bool) {
	if string(data) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String(), true
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return "", true
		}
		return scalarString(list[0])
	}
	return "", false
}
