package content

import "strings"

// sectionKeywords mirrors an earlier detectSection heading map, narrowed
// to the four sections ParsedContent tracks.
var sectionKeywords = map[string][]string{
	"abstract":   {"abstract", "summary"},
	"methods":    {"methods", "methodology", "materials and methods"},
	"results":    {"results", "findings"},
	"discussion": {"discussion", "conclusion", "conclusions"},
}

// sectionOrder fixes the sequence sections are expected to appear in a
// typical biomedical paper, used to slice continuous text once a heading
// line is found.
var sectionOrder = []string{"abstract", "methods", "results", "discussion"}

// segment splits full-text PDF output into the four tracked sections by
// scanning line-by-line for a short heading line that equals a
// sectionKeywords entry or starts with it followed by a space or colon.
// Keywords appearing elsewhere in a line are not matched. The first
// occurrence of each section wins.
func segment(fullText string) map[string]string {
	lines := strings.Split(fullText, "\n")
	sections := make(map[string]string)

	boundaries := []int{}
	labels := []string{}
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if trimmed == "" || len(trimmed) > 60 {
			continue // heading lines are short
		}
		if label, ok := matchHeading(trimmed); ok {
			boundaries = append(boundaries, i)
			labels = append(labels, label)
		}
	}

	for i, start := range boundaries {
		end := len(lines)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		body := strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
		if body == "" {
			continue
		}
		if _, exists := sections[labels[i]]; !exists {
			sections[labels[i]] = body
		}
	}

	return sections
}

func matchHeading(line string) (string, bool) {
	for _, label := range sectionOrder {
		for _, kw := range sectionKeywords[label] {
			if line == kw || strings.HasPrefix(line, kw+" ") || strings.HasPrefix(line, kw+":") {
				return label, true
			}
		}
	}
	return "", false
}
