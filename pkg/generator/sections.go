package generator

import (
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bluecontainer/openapi-suite-gen/pkg/diagnostics"
	"github.com/bluecontainer/openapi-suite-gen/pkg/suite"
)

const (
	// nullTagKey keys a tag entry that has no name
	nullTagKey = "null"

	displayNameExtension = "x-displayName"
	tagGroupsExtension   = "x-tagGroups"

	sectionSeparator = "=============================================================="
)

// Logger receives application progress lines
type Logger interface {
	Log(message string)
}

type discardLogger struct{}

func (discardLogger) Log(string) {}

// BuildSections seeds reg from the document's tags and x-tagGroups. The
// untagged section is always created first. Tag groups only add sections;
// they never change where operations are placed.
func BuildSections(spec *openapi3.T, reg *suite.Registry, warnings diagnostics.Sink, log Logger) {
	if log == nil {
		log = discardLogger{}
	}
	if warnings == nil {
		warnings = discardSink{}
	}

	reg.Ensure(suite.UntaggedKey, suite.UntaggedKey, "")
	if spec == nil {
		return
	}

	for _, tag := range spec.Tags {
		if tag == nil {
			continue
		}
		key := tag.Name
		if key == "" {
			key = nullTagKey
		}
		name := key
		if v, ok := tag.Extensions[displayNameExtension]; ok && v != nil {
			name = fmt.Sprint(v)
		}
		if reg.Ensure(key, name, tag.Description) {
			log.Log("Tag-Section#: " + name)
		}
	}

	groups, ok := spec.Extensions[tagGroupsExtension]
	if ok {
		buildGroupSections(groups, reg, warnings, log)
	}

	log.Log(sectionSeparator)
}

func buildGroupSections(groups any, reg *suite.Registry, warnings diagnostics.Sink, log Logger) {
	entries, ok := groups.([]any)
	if !ok {
		warnings.Record(Warning{Kind: MalformedTagGroup, Subject: tagGroupsExtension})
		return
	}

	for i, entry := range entries {
		name, tags, ok := parseTagGroup(entry)
		if !ok {
			warnings.Record(Warning{Kind: MalformedTagGroup, Subject: strconv.Itoa(i)})
			continue
		}

		// Unknown tags are checked against the sections known before this
		// group's own section is added.
		for _, tag := range tags {
			if !reg.Has(tag) {
				warnings.Record(Warning{Kind: UnknownGroupTag, Subject: name, Detail: tag})
			}
		}
		if reg.Ensure(name, name, "") {
			log.Log("Group-Section#: " + name)
		}
	}
}

// parseTagGroup reads {name: string, tags: [string]}. A missing tags list is
// allowed; anything else that is not a string is malformed.
func parseTagGroup(entry any) (string, []string, bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return "", nil, false
	}
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return "", nil, false
	}

	raw, present := m["tags"]
	if !present || raw == nil {
		return name, nil, true
	}
	list, ok := raw.([]any)
	if !ok {
		return "", nil, false
	}
	tags := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return "", nil, false
		}
		tags = append(tags, s)
	}
	return name, tags, true
}

type discardSink struct{}

func (discardSink) Record(any) {}
