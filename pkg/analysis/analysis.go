// Package analysis implements AnalyzeDataset: given a dataset and its
// enriched publications, assemble a single text context object suitable
// for handing to an external LLM. Building and calling that LLM is out of
// scope; this package stops at producing the context.
package analysis

import (
	"fmt"
	"strings"

	"github.com/btraven00/geofetch/pkg/models"
)

// Context is the assembled, LLM-ready description of a dataset and its
// supporting literature.
type Context struct {
	GeoID   string
	Prompt  string
	Sources []string
}

// AnalyzeDataset renders ds plus original/citing publication content into
// one prompt-sized text block, citing every publication it draws from.
func AnalyzeDataset(ds models.Dataset, original *models.Publication, citing []models.Publication, content map[string]models.ParsedContent) Context {
	var b strings.Builder
	var sources []string

	fmt.Fprintf(&b, "Dataset %s: %s\n", ds.GeoID, ds.Title)
	if ds.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", ds.Summary)
	}
	fmt.Fprintf(&b, "Organism: %s | Platform: %s | Samples: %d\n\n", ds.Organism, ds.Platform, ds.SampleCount)

	if original != nil {
		writePublication(&b, "Original publication", original, content)
		sources = append(sources, original.Identity())
	}

	for i := range citing {
		writePublication(&b, fmt.Sprintf("Citing publication %d", i+1), &citing[i], content)
		sources = append(sources, citing[i].Identity())
	}

	return Context{GeoID: ds.GeoID, Prompt: b.String(), Sources: sources}
}

func writePublication(b *strings.Builder, label string, pub *models.Publication, content map[string]models.ParsedContent) {
	fmt.Fprintf(b, "%s: %s (%d)\n", label, pub.Title, pub.Year)
	if pub.Abstract != "" {
		fmt.Fprintf(b, "Abstract: %s\n", pub.Abstract)
	}
	if parsed, ok := content[pub.Identity()]; ok {
		if parsed.Methods != "" {
			fmt.Fprintf(b, "Methods: %s\n", truncate(parsed.Methods, 2000))
		}
		if parsed.Results != "" {
			fmt.Fprintf(b, "Results: %s\n", truncate(parsed.Results, 2000))
		}
	}
	b.WriteString("\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
