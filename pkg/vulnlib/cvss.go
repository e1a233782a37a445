package vulnlib

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
)

// severityFromScore maps a CVSS v3 base score to its qualitative rating.
func severityFromScore(score float64) string {
	switch {
	case score >= 9.0:
		return "critical"
	case score >= 7.0:
		return "high"
	case score >= 4.0:
		return "medium"
	case score > 0:
		return "low"
	}

	return ""
}

// normalizeSeverity lowercases the severity of a record and falls back to
// the score when the feed carries none.
func normalizeSeverity(severity string, score float64) string {
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" || severity == "none" {
		return severityFromScore(score)
	}

	return severity
}

// gunzip inflates gzip compressed feeds, like the NVD yearly archives, and
// returns anything else untouched.
func gunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}
