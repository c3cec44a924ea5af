package suite

import (
	"errors"
	"fmt"
)

// UntaggedKey is the group key of the section receiving operations without a known tag
const UntaggedKey = "untagged"

var (
	// ErrUnknownSection is returned when a case targets a group key that was never created
	ErrUnknownSection = errors.New("unknown section")
	// ErrDuplicateAutomationID is returned when a case reuses an automation id
	ErrDuplicateAutomationID = errors.New("duplicate automation id")
)

// Registry collects sections keyed by group key during a single parse.
// It is not safe for concurrent use.
type Registry struct {
	sections  map[string]*Section
	created   []string
	populated []string
	ids       map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sections: make(map[string]*Section),
		ids:      make(map[string]bool),
	}
}

// Has reports whether a section exists for key
func (r *Registry) Has(key string) bool {
	_, ok := r.sections[key]
	return ok
}

// Ensure creates the section for key unless it already exists.
// Returns true when a new section was created.
func (r *Registry) Ensure(key, name, description string) bool {
	if r.Has(key) {
		return false
	}
	r.sections[key] = &Section{Name: name, Description: description}
	r.created = append(r.created, key)
	return true
}

// Keys returns the group keys in creation order
func (r *Registry) Keys() []string {
	return append([]string(nil), r.created...)
}

// Section returns a copy of the section stored under key
func (r *Registry) Section(key string) (Section, bool) {
	sec, ok := r.sections[key]
	if !ok {
		return Section{}, false
	}
	return copySection(sec), true
}

// Add appends c to the section stored under key
func (r *Registry) Add(key string, c Case) error {
	sec, ok := r.sections[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSection, key)
	}
	if r.ids[c.AutomationID] {
		return fmt.Errorf("%w: %s", ErrDuplicateAutomationID, c.AutomationID)
	}
	r.ids[c.AutomationID] = true
	if len(sec.Cases) == 0 {
		r.populated = append(r.populated, key)
	}
	sec.Cases = append(sec.Cases, c)
	return nil
}

// CaseCount returns the number of cases added so far
func (r *Registry) CaseCount() int {
	return len(r.ids)
}

// Assemble builds the final suite. Sections without cases are dropped; the
// untagged section leads when it has cases, the others follow in the order
// they received their first case. The registry can keep being used afterwards
// without affecting the returned suite.
func (r *Registry) Assemble(name, source string) Suite {
	s := Suite{Name: name, Source: source, Sections: make([]Section, 0, len(r.populated))}

	if sec, ok := r.sections[UntaggedKey]; ok && len(sec.Cases) > 0 {
		s.Sections = append(s.Sections, copySection(sec))
	}
	for _, key := range r.populated {
		if key == UntaggedKey {
			continue
		}
		s.Sections = append(s.Sections, copySection(r.sections[key]))
	}
	return s
}

func copySection(sec *Section) Section {
	out := *sec
	out.Cases = append([]Case(nil), sec.Cases...)
	return out
}
