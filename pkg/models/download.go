package models

import "time"

// DownloadError is one provider/URL attempt's failure reason, kept in the
// order attempts occurred.
type DownloadError struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// DownloadResult is the terminal outcome of the Download Engine's waterfall
// for one publication. Exhausting all candidate URLs is success=false, not
// an error.
type DownloadResult struct {
	DownloadedAt     time.Time       `json:"downloaded_at"`
	PublicationID    string          `json:"publication_id"`
	PDFPath          string          `json:"pdf_path,omitempty"`
	SuccessfulSource string          `json:"successful_source,omitempty"`
	Errors           []DownloadError `json:"errors,omitempty"`
	FileSize         int64           `json:"file_size,omitempty"`
	Success          bool            `json:"success"`
}

// PDFMagic is the byte sequence every validated PDF must begin with.
const PDFMagic = "%PDF"

// MinPDFSize is the minimum byte count for a downloaded body to be
// treated as a plausible PDF rather than an error page.
const MinPDFSize = 10 * 1024

// LooksLikePDF reports whether body begins with the PDF magic bytes.
func LooksLikePDF(body []byte) bool {
	return len(body) >= 4 && string(body[:4]) == PDFMagic
}
