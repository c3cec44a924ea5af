package suite

// TemplateID is the test-management case template every generated case uses
const TemplateID = 1

// Suite is the root of the generated test plan
type Suite struct {
	Name     string    `json:"name" yaml:"name"`
	Source   string    `json:"source" yaml:"source"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section groups the cases of one tag (or the untagged bucket)
type Section struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Cases       []Case `json:"cases" yaml:"cases"`
}

// Case is one (path, verb, response) scenario
type Case struct {
	Title        string `json:"title" yaml:"title"`
	AutomationID string `json:"custom_automation_id" yaml:"custom_automation_id"`
	Fields       Fields `json:"case_fields" yaml:"case_fields"`
}

// Fields holds the text blocks rendered for a case
type Fields struct {
	TemplateID    int    `json:"template_id" yaml:"template_id"`
	Preconditions string `json:"custom_preconds" yaml:"custom_preconds"`
	Steps         string `json:"custom_steps" yaml:"custom_steps"`
	Expected      string `json:"custom_expected" yaml:"custom_expected"`
}

// CaseCount returns the number of cases across all sections
func (s Suite) CaseCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Cases)
	}
	return n
}
