package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies why a reply was degraded to the offline substitute.
type ErrorKind string

const (
	KindConfig    ErrorKind = "config"
	KindTransport ErrorKind = "transport"
	KindRemote    ErrorKind = "remote"
	KindDecode    ErrorKind = "decode"
	KindDuplicate ErrorKind = "duplicate"
)

const (
	maxBodySnippet = 200
	// DuplicateReplyMessage is reported when the remote repeats its previous turn.
	DuplicateReplyMessage = "duplicate reply"
)

// CallError is the advisory error attached to a degraded Reply. Its Error text
// is what the caller shows next to the substitute reply.
type CallError struct {
	Kind    ErrorKind
	Status  int
	Message string

	body string
}

func (e *CallError) Error() string {
	return e.Message
}

// rejectsStructuredOutput reports whether the remote refused response_format.
func (e *CallError) rejectsStructuredOutput() bool {
	if e.Kind != KindRemote {
		return false
	}
	switch e.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	lowered := strings.ToLower(e.body)
	return strings.Contains(lowered, "response_format") || strings.Contains(lowered, "json_object")
}

func remoteError(status int, body string) *CallError {
	return &CallError{
		Kind:    KindRemote,
		Status:  status,
		Message: formatHTTPError(status, body),
		body:    body,
	}
}

// formatHTTPError renders "HTTP <code>[ Payment Required][: detail]" where detail
// is error.message or error.type from a JSON body, else the head of the raw body.
func formatHTTPError(status int, body string) string {
	msg := fmt.Sprintf("HTTP %d", status)
	if status == http.StatusPaymentRequired {
		msg += " Payment Required"
	}
	if body == "" {
		return msg
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		if detail, ok := obj["error"].(map[string]any); ok {
			for _, key := range []string{"message", "type"} {
				if s, ok := scalarText(detail[key]); ok {
					return msg + ": " + s
				}
			}
		}
	}
	return msg + ": " + truncateRunes(body, maxBodySnippet)
}

// scalarText renders a non-empty, non-zero JSON scalar.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return fmt.Sprint(t), t != 0
	case bool:
		return fmt.Sprint(t), t
	}
	return "", false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
