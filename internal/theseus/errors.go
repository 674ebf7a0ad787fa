package theseus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSummaryLen = 300

// APIError is a non-2xx answer from the order service. Rejections such as
// blocked destination countries arrive this way.
type APIError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Summary())
}

// Summary is the body as JSON when it is JSON, the visible text of an HTML
// error page (proxies and gateways send those), or the raw text otherwise.
func (e *APIError) Summary() string {
	return summarize(e.ContentType, e.Body)
}

// JSON is the body in a form that can be embedded in the results file.
func (e *APIError) JSON() json.RawMessage {
	return bodyJSON(e.ContentType, e.Body)
}

func summarize(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "(empty body)"
	}
	if json.Valid(trimmed) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err == nil {
			return compact.String()
		}
	}
	if isHTML(contentType, trimmed) {
		if text := htmlText(trimmed); text != "" {
			return truncate(text)
		}
	}
	return truncate(string(trimmed))
}

// bodyJSON keeps a JSON body as is and wraps anything else as {"raw": ...}.
func bodyJSON(contentType string, body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	blob, _ := json.Marshal(map[string]string{"raw": summarize(contentType, body)})
	return blob
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	lower := bytes.ToLower(body)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

func htmlText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()
	title := normalizeSpaces(doc.Find("title").First().Text())
	text := normalizeSpaces(doc.Find("body").Text())
	switch {
	case title == "":
		return text
	case text == "" || strings.HasPrefix(text, title):
		return title
	default:
		return title + ": " + text
	}
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxSummaryLen {
		return s
	}
	return string(r[:maxSummaryLen]) + "..."
}
