package httpx

import "testing"

func TestPDFLikelihood(t *testing.T) {
	cases := []struct {
		name          string
		contentType   string
		contentLength int64
		wantMin       float64
		wantMax       float64
	}{
		{"pdf content type, plausible size", "application/pdf", 500 * 1024, 0.8, 1.0},
		{"pdf content type, tiny size", "application/pdf", 100, 0.0, 0.7},
		{"octet-stream, plausible size", "application/octet-stream", 500 * 1024, 0.3, 0.8},
		{"html, plausible size", "text/html; charset=utf-8", 500 * 1024, 0.1, 0.6},
		{"unknown type, huge size", "", 50 * 1024 * 1024, 0.0, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PDFLikelihood(tc.contentType, tc.contentLength)
			if got < tc.wantMin || got > tc.wantMax {
				t.Errorf("PDFLikelihood(%q, %d) = %v, want in [%v, %v]", tc.contentType, tc.contentLength, got, tc.wantMin, tc.wantMax)
			}
		})
	}
}

func TestPDFLikelihoodClampedToUnitRange(t *testing.T) {
	if got := PDFLikelihood("application/pdf", 1); got < 0 || got > 1 {
		t.Errorf("expected score clamped to [0,1], got %v", got)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !LooksLikeHTML("text/html; charset=utf-8") {
		t.Errorf("expected text/html to be detected")
	}
	if LooksLikeHTML("application/pdf") {
		t.Errorf("expected application/pdf not to be detected as html")
	}
}
