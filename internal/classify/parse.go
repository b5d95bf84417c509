package classify

import (
	"strings"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// ParseLine parses one "type | title" line. Lines without a separator are
// treated as preamble and yield nil. Unknown types become "other".
func ParseLine(line string) *Suggestion {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, "|") {
		return nil
	}
	if strings.HasPrefix(line, "Here") || strings.HasPrefix(line, "I see") || strings.HasPrefix(line, "Based on") {
		return nil
	}

	parts := strings.SplitN(line, "|", 2)
	kind := strings.ToLower(strings.TrimSpace(parts[0]))
	kind = strings.NewReplacer(" ", "_", "-", "_", "`", "", "*", "").Replace(kind)

	s := &Suggestion{
		DocumentType: domain.DocumentType(kind),
		Title:        strings.Trim(strings.TrimSpace(parts[1]), `"*`),
	}
	if !s.DocumentType.Valid() {
		s.DocumentType = domain.DocumentOther
	}
	return s
}

// ParseResponse returns the first suggestion in a model response, or nil when
// the response holds none.
func ParseResponse(raw string) *Suggestion {
	for _, line := range strings.Split(raw, "\n") {
		if s := ParseLine(line); s != nil {
			s.RawResponse = raw
			return s
		}
	}
	return nil
}
