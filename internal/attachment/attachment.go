// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment validates and reads files attached to chat messages.
package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// =============================================================================
// ACCEPTED TYPES
// =============================================================================

// MIME types the agent endpoint accepts.
const (
	TypeText = "text/plain"
	TypePDF  = "application/pdf"
	TypeDoc  = "application/msword"
	TypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var accepted = map[string]bool{
	TypeText: true,
	TypePDF:  true,
	TypeDoc:  true,
	TypeDocx: true,
}

// byExtension gives the declared type for common extensions without
// consulting the system mime tables, which differ between platforms.
var byExtension = map[string]string{
	".txt":  TypeText,
	".text": TypeText,
	".log":  TypeText,
	".pdf":  TypePDF,
	".doc":  TypeDoc,
	".docx": TypeDocx,
}

// MaxTextSize caps how much of a text attachment is inlined into a request.
const MaxTextSize = 1 << 20 // 1MB

var (
	// ErrUnsupportedType is returned when a file's type is not accepted.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge is returned when a text attachment exceeds MaxTextSize.
	ErrTooLarge = errors.New("text attachment too large")

	// ErrNotText is returned by ReadText for non-text attachments.
	ErrNotText = errors.New("attachment is not plain text")
)

// UnsupportedTypeError reports the rejected file and its detected type.
type UnsupportedTypeError struct {
	FileName string
	MIMEType string
}

func (e *UnsupportedTypeError) Error() string {
	if e.MIMEType == "" {
		return fmt.Sprintf("%s: unrecognized file type; accepted: .txt, .pdf, .doc, .docx", e.FileName)
	}
	return fmt.Sprintf("%s: type %s is not supported; accepted: .txt, .pdf, .doc, .docx", e.FileName, e.MIMEType)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// IsAccepted reports whether mimeType (parameters ignored) may be attached.
func IsAccepted(mimeType string) bool {
	return accepted[baseType(mimeType)]
}

// AcceptedTypes returns the accepted MIME types.
func AcceptedTypes() []string {
	return []string{TypeText, TypePDF, TypeDoc, TypeDocx}
}

func baseType(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

// =============================================================================
// ATTACHMENT
// =============================================================================

// Attachment is a file selected for the next message. Only metadata is
// held; content is read at send time.
type Attachment struct {
	FileName string
	MIMEType string
	Size     int64

	open func() (io.ReadCloser, error)
}

// New creates an attachment from a name, a declared type and a content
// opener. The type must be accepted.
func New(name, mimeType string, size int64, open func() (io.ReadCloser, error)) (*Attachment, error) {
	mt := baseType(mimeType)
	if !accepted[mt] {
		return nil, &UnsupportedTypeError{FileName: name, MIMEType: mt}
	}
	return &Attachment{FileName: name, MIMEType: mt, Size: size, open: open}, nil
}

// FromBytes creates an attachment over in-memory content.
func FromBytes(name, mimeType string, data []byte) (*Attachment, error) {
	return New(name, mimeType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// Open selects a file from disk. The declared type comes from the extension
// the way a browser file picker reports it; files with an unknown extension
// are sniffed. A .txt file whose content is binary is rejected.
func Open(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot attach %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot attach %s: is a directory", path)
	}
	name := filepath.Base(path)

	declared := byExtension[strings.ToLower(filepath.Ext(name))]
	if declared == "" {
		declared = mime.TypeByExtension(filepath.Ext(name))
	}

	sniffed, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot attach %s: %w", path, err)
	}

	mt := baseType(declared)
	switch {
	case mt == "":
		mt = baseType(sniffed.String())
		// Sniffing reports parents (e.g. zip for docx) only when it cannot do
		// better, so walk up to an accepted type if one exists.
		for m := sniffed; m != nil && !accepted[mt]; m = m.Parent() {
			if accepted[baseType(m.String())] {
				mt = baseType(m.String())
			}
		}
	case mt == TypeText && !isText(sniffed):
		return nil, &UnsupportedTypeError{FileName: name, MIMEType: baseType(sniffed.String())}
	}

	return New(name, mt, info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// isText reports whether m is plain text or a text subtype such as JSON.
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(TypeText) {
			return true
		}
	}
	return false
}

// IsText reports whether the content is inlined into the request.
func (a *Attachment) IsText() bool {
	return a.MIMEType == TypeText
}

// ReadText reads the full content of a text attachment.
func (a *Attachment) ReadText() (string, error) {
	if !a.IsText() {
		return "", ErrNotText
	}
	if a.open == nil {
		return "", fmt.Errorf("%s: no content source", a.FileName)
	}
	rc, err := a.open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", a.FileName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxTextSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", a.FileName, err)
	}
	if len(data) > MaxTextSize {
		return "", fmt.Errorf("%s: %w (limit %d bytes)", a.FileName, ErrTooLarge, MaxTextSize)
	}
	return string(data), nil
}

// String returns "name (type, size)".
func (a *Attachment) String() string {
	return fmt.Sprintf("%s (%s, %s)", a.FileName, a.MIMEType, FormatSize(a.Size))
}

// FormatSize formats a byte count for display.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
