package generator

import "fmt"

// WarningKind classifies a data-quality warning
type WarningKind string

const (
	MissingTags        WarningKind = "missing-tags"
	UnmatchedTags      WarningKind = "unmatched-tags"
	MissingSummary     WarningKind = "missing-summary"
	MissingOperationID WarningKind = "missing-operation-id"
	UnknownGroupTag    WarningKind = "unknown-group-tag"
	MalformedTagGroup  WarningKind = "malformed-tag-group"
	DuplicateCase      WarningKind = "duplicate-case"
	SelectorFailed     WarningKind = "selector-failed"
	ProcessFailure     WarningKind = "process-failure"
)

// Warning is a data-quality issue found while building the suite. It never
// stops processing.
type Warning struct {
	Kind WarningKind
	// Subject is the "{verb}:{path}" key, the tag-group name or the entry index
	Subject string
	// Detail carries the tag name, automation id or error text where relevant
	Detail string
}

func (w Warning) String() string {
	switch w.Kind {
	case MissingTags:
		return fmt.Sprintf("<Tags> not found!: %s", w.Subject)
	case UnmatchedTags:
		return fmt.Sprintf("<Tags> list does not match!: %s", w.Subject)
	case MissingSummary:
		return fmt.Sprintf("Summary not found!: %s", w.Subject)
	case MissingOperationID:
		return fmt.Sprintf("Operation Id not found!: %s", w.Subject)
	case UnknownGroupTag:
		return fmt.Sprintf("Tag %s assigned not found!: tag-group %s", w.Detail, w.Subject)
	case MalformedTagGroup:
		return fmt.Sprintf("Tag-group entry #%s is malformed and was skipped", w.Subject)
	case DuplicateCase:
		return fmt.Sprintf("Duplicate automation id %s skipped: %s", w.Detail, w.Subject)
	case SelectorFailed:
		return fmt.Sprintf("Selector failed: %s: %s", w.Detail, w.Subject)
	case ProcessFailure:
		return fmt.Sprintf("Process Failure: -error: %s", w.Detail)
	}
	return fmt.Sprintf("%s: %s %s", w.Kind, w.Subject, w.Detail)
}
