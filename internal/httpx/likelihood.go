package httpx

import "strings"

// PDFLikelihood scores how likely a response describes an actual PDF
// (rather than a landing page or an error page), given its Content-Type
// and Content-Length. Adapted from an earlier dataset-file likelihood
// heuristic, repointed from "is this a dataset file" to "is this the PDF
// the URL collector expects": the same content-type/size heuristics,
// different target.
func PDFLikelihood(contentType string, contentLength int64) float64 {
	score := 0.0
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "application/pdf"):
		score += 0.9
	case strings.Contains(ct, "application/octet-stream"):
		score += 0.4
	case strings.Contains(ct, "text/html"):
		score += 0.2 // could be a landing page that embeds a PDF
	}

	switch {
	case contentLength > 10*1024*1024:
		score += 0.1
	case contentLength >= 10*1024:
		score += 0.2
	default:
		score -= 0.3 // likely an error page
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// LooksLikeHTML reports whether a Content-Type header indicates an HTML
// document, the signal the Download Engine uses to route into its
// LandingPageParse state.
func LooksLikeHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
