package ledger

import (
	"regexp"
	"strings"
)

// Tag is an annotation parsed from a comment. Plain tags are written ":travel:work:" and
// have no value; valued tags are written "key: value".
type Tag struct {
	Name  string
	Value string
}

// ParseTags extracts tags from comment lines.
func ParseTags(comments []string) []Tag {
	var tags []Tag
	for _, comment := range comments {
		fields := strings.Fields(strings.TrimLeft(comment, ";#% \t"))
		for i, field := range fields {
			if len(field) > 2 && strings.HasPrefix(field, ":") && strings.HasSuffix(field, ":") {
				for _, name := range strings.Split(field[1:len(field)-1], ":") {
					if name != "" {
						tags = append(tags, Tag{Name: name})
					}
				}
				continue
			}
			if len(field) > 1 && strings.HasSuffix(field, ":") && !strings.HasPrefix(field, ":") {
				tags = append(tags, Tag{
					Name:  strings.TrimSuffix(field, ":"),
					Value: strings.Join(fields[i+1:], " "),
				})
				break
			}
		}
	}
	return tags
}

func findTag(tags []Tag, re *regexp.Regexp) (Tag, bool) {
	for _, t := range tags {
		if re.MatchString(t.Name) {
			return t, true
		}
	}
	return Tag{}, false
}
