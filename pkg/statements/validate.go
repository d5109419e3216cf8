package statements

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid statement")

// Validate checks that the statement has its required arguments and that
// every modification and activity type is known.
func Validate(stmt Statement) error {
	if stmt == nil {
		return fmt.Errorf("%w: nil statement", ErrInvalid)
	}
	if _, ok := factories[stmt.Type()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, stmt.Type())
	}

	required := func(role string, a *Agent) error {
		if a == nil {
			return fmt.Errorf("%w: %s missing %s", ErrInvalid, stmt.Type(), role)
		}
		return nil
	}

	var err error
	switch s := stmt.(type) {
	case *Modification:
		err = required("sub", s.Sub)
	case *SelfModification:
		err = required("enz", s.Enz)
	case *RegulateActivity:
		err = errors.Join(required("subj", s.Subj), required("obj", s.Obj), validActivity(s.ObjActivity))
	case *RegulateAmount:
		err = required("obj", s.Obj)
	case *ActiveForm:
		err = errors.Join(required("agent", s.Agent), validActivity(s.Activity))
	case *HasActivity:
		err = errors.Join(required("agent", s.Agent), validActivity(s.Activity))
	case *Gef:
		err = errors.Join(required("gef", s.GEF), required("ras", s.Ras))
	case *Gap:
		err = errors.Join(required("gap", s.GAP), required("ras", s.Ras))
	case *Complex:
		if len(s.Members) == 0 {
			return fmt.Errorf("%w: Complex without members", ErrInvalid)
		}
		for _, m := range s.Members {
			if err := required("member", m); err != nil {
				return err
			}
		}
	case *Translocation:
		err = required("agent", s.Agent)
	case *Conversion:
		for _, a := range append(append([]*Agent(nil), s.ObjFrom...), s.ObjTo...) {
			if err := required("species", a); err != nil {
				return err
			}
		}
	}
	if err != nil {
		return err
	}

	for _, a := range stmt.Agents() {
		if err := validateAgent(a); err != nil {
			return fmt.Errorf("%s: %w", stmt.Type(), err)
		}
	}
	return nil
}

func validateAgent(a *Agent) error {
	if a == nil {
		return nil
	}
	if a.Name == "" {
		return fmt.Errorf("%w: agent without name", ErrInvalid)
	}
	for _, m := range a.Mods {
		if !ValidModType(m.ModType) {
			return fmt.Errorf("%w: agent %s has unknown modification %q", ErrInvalid, a.Name, m.ModType)
		}
	}
	if a.Activity != nil {
		if err := validActivity(a.Activity.ActivityType); err != nil {
			return err
		}
	}
	for _, bc := range a.BoundConditions {
		if bc.Agent == nil {
			return fmt.Errorf("%w: agent %s has empty bound condition", ErrInvalid, a.Name)
		}
		if err := validateAgent(bc.Agent); err != nil {
			return err
		}
	}
	return nil
}

func validActivity(activity string) error {
	if !ValidActivity(ActivityOrDefault(activity)) {
		return fmt.Errorf("%w: unknown activity type %q", ErrInvalid, activity)
	}
	return nil
}
