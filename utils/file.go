package utils

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePDF      = "application/pdf"
	MimeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeOctet    = "application/octet-stream"
)

var extensionMimeTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDocx,
	".txt":  MimeText,
	".md":   MimeMarkdown,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// DetectMimeType sniffs data with the stdlib detector first and falls back to
// mimetype when the result is ambiguous. The filename extension decides
// between generic containers (zip, plain text) and the document formats
// they carry.
func DetectMimeType(data []byte, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(data) == 0 {
		if mt, ok := extensionMimeTypes[ext]; ok {
			return mt
		}
		return MimeOctet
	}

	mt := baseMimeType(http.DetectContentType(data))
	if mt == MimeOctet || mt == "application/zip" {
		mt = baseMimeType(mimetype.Detect(data).String())
	}
	switch {
	case mt == "application/zip" && ext == ".docx":
		return MimeDocx
	case mt == MimeText && ext == ".md":
		return MimeMarkdown
	case mt == MimeOctet:
		if byExt, ok := extensionMimeTypes[ext]; ok {
			return byExt
		}
	}
	return mt
}

// NormalizeMimeType strips parameters and lowercases a declared content type.
func NormalizeMimeType(declared string) string {
	return baseMimeType(declared)
}

func baseMimeType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func IsPDF(mt string) bool {
	return mt == MimePDF
}

func IsImage(mt string) bool {
	return strings.HasPrefix(mt, "image/")
}

func IsDocx(mt string) bool {
	return mt == MimeDocx
}

func IsText(mt string) bool {
	return mt == MimeText || mt == MimeMarkdown
}

func IsAudio(mt string) bool {
	return strings.HasPrefix(mt, "audio/") || mt == "video/webm"
}

// IsSupportedDocument reports whether mt can be ingested.
func IsSupportedDocument(mt string) bool {
	return IsPDF(mt) || IsImage(mt) || IsDocx(mt) || IsText(mt)
}

// SanitizeFilename keeps the base name of an uploaded file and drops
// characters that are unsafe in headers.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// ContentDisposition builds an inline or attachment Content-Disposition value.
func ContentDisposition(filename string, download bool) string {
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	return mime.FormatMediaType(disposition, map[string]string{"filename": SanitizeFilename(filename)})
}
