package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	mimeText = "text/plain"
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// retryDelay is the backoff unit: attempt n waits n*retryDelay before the next one.
var retryDelay = 500 * time.Millisecond

// retry retries a function up to `attempts` times with linear backoff
func retry[T any](attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(time.Duration(i+1) * retryDelay)
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func CleanJson(input string) string {
	clean := strings.TrimSpace(input)

	// Remove opening ```json or ``` with optional newline
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

// parseAnalysis turns the agent's raw output into a result. Failures are
// recorded on the result rather than returned.
func parseAnalysis(output string, agentErr error) AnalysesResult {
	result := AnalysesResult{}
	switch {
	case agentErr != nil:
		result.IsErrorResult = true
		result.Error = agentErr.Error()

	case strings.TrimSpace(output) == "":
		result.IsErrorResult = true
		result.Error = "empty response from agent"

	default:
		if err := json.Unmarshal([]byte(CleanJson(output)), &result); err != nil {
			result.IsErrorResult = true
			result.Error = "json unmarshal error: " + err.Error()
		}
	}
	return result
}

// resumeMime resolves the content type of an uploaded resume from its
// declared type, falling back to the file extension.
func resumeMime(filename, declared string) (string, error) {
	declared, _, _ = strings.Cut(declared, ";")
	switch strings.TrimSpace(declared) {
	case mimeText, mimePDF, mimeDocx:
		return strings.TrimSpace(declared), nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return mimeText, nil
	case ".pdf":
		return mimePDF, nil
	case ".docx":
		return mimeDocx, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", filename)
}

func extensionFor(mime string) string {
	switch mime {
	case mimePDF:
		return ".pdf"
	case mimeDocx:
		return ".docx"
	default:
		return ".txt"
	}
}

func ExtractResumeText(mime string, data []byte) (string, error) {
	switch mime {
	case mimeText:
		return string(data), nil

	case mimePDF:
		return extractPDFText(bytes.NewReader(data))

	case mimeDocx:
		return extractDocxText(bytes.NewReader(data))

	default:
		return "", fmt.Errorf("unsupported file type: %s", mime)
	}
}

func extractPDFText(reader *bytes.Reader) (string, error) {
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		textBuilder.WriteString(text)
	}
	return textBuilder.String(), nil
}

func extractDocxText(reader *bytes.Reader) (string, error) {
	doc, err := docx.ReadDocxFromMemory(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}
