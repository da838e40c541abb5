// Package precheck gates uploads before any parsing spend: file count, size
// and type limits, and duplicate detection by content hash. Nothing past this
// gate sees a rejected file.
package precheck

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/report"
)

// File limits.
const (
	MaxFiles    = 3
	MinFileSize = 40 << 10 // 40 KiB
	MaxFileSize = 20 << 20 // 20 MiB
)

// Upload is one file as received by the multipart handler.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate applies the pre-parse gate. The first violation aborts with a
// fault naming the offending file.
func Validate(uploads []Upload) *fault.Error {
	if len(uploads) == 0 {
		return fault.New(fault.TooManyFiles, "at least one file is required")
	}
	if len(uploads) > MaxFiles {
		return fault.New(fault.TooManyFiles, "at most %d files are accepted, got %d", MaxFiles, len(uploads))
	}

	seen := make(map[string]string, len(uploads)) // digest -> first filename
	for _, u := range uploads {
		if !isPDF(u) {
			return fault.New(fault.BadType, "only PDF files are accepted").WithFile(u.Name)
		}
		if len(u.Data) < MinFileSize {
			return fault.New(fault.FileTooSmall, "file is smaller than %d bytes", MinFileSize).WithFile(u.Name)
		}
		if len(u.Data) > MaxFileSize {
			return fault.New(fault.FileTooLarge, "file exceeds %d bytes", MaxFileSize).WithFile(u.Name)
		}

		sum := sha256.Sum256(u.Data)
		digest := hex.EncodeToString(sum[:])
		if first, dup := seen[digest]; dup {
			return fault.New(fault.DuplicateFile, "duplicate of %s", first).WithFile(u.Name)
		}
		seen[digest] = u.Name
	}
	return nil
}

// CheckTriMergeMulti rejects a tri-merge document submitted alongside other
// files. Runs after text extraction, before any model spend on the rest.
func CheckTriMergeMulti(texts []string, fileCount int) *fault.Error {
	if fileCount <= 1 {
		return nil
	}
	for _, text := range texts {
		if text != "" && report.Classify(text) == report.SourceTriMerge {
			return fault.New(fault.TriMergeWithMultiple,
				"a tri-merge report must be uploaded alone")
		}
	}
	return nil
}

// isPDF accepts by declared content type, with a filename-extension fallback
// for clients that send application/octet-stream.
func isPDF(u Upload) bool {
	ct := strings.ToLower(strings.TrimSpace(u.ContentType))
	if ct == "application/pdf" || ct == "application/x-pdf" {
		return true
	}
	if ct == "" || ct == "application/octet-stream" {
		return strings.HasSuffix(strings.ToLower(u.Name), ".pdf")
	}
	return false
}
