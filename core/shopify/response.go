package shopify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ResponseError is a single top-level error entry reported by the remote
// API.
type ResponseError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Result is the normalized {data, errors} pair every remote call resolves
// to, regardless of the shape the transport produced.
type Result struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// ErrorMessages joins the top-level error messages into one string.
func (r *Result) ErrorMessages() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, ", ")
}

// ResponseFormatError reports a raw response whose shape could not be
// normalized into a Result.
type ResponseFormatError struct {
	Shape string
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("unrecognized response shape: %s", e.Shape)
}

// Normalize converts a raw remote response into a Result. Accepted shapes:
//
//   - *Result: already normalized, returned as is
//   - map[string]any carrying "data" and/or "errors" keys
//   - *http.Response or io.Reader: a JSON body to be decoded
//   - []byte or string: raw JSON to be parsed
//
// Anything else fails with *ResponseFormatError.
func Normalize(raw any) (*Result, error) {
	switch v := raw.(type) {
	case nil:
		return nil, &ResponseFormatError{Shape: "nil"}
	case *Result:
		return v, nil
	case map[string]any:
		if _, hasData := v["data"]; !hasData {
			if _, hasErrors := v["errors"]; !hasErrors {
				return nil, &ResponseFormatError{Shape: "map without data or errors"}
			}
		}
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, &ResponseFormatError{Shape: "unmarshalable map"}
		}
		return normalizeBytes(buf)
	case *http.Response:
		defer v.Body.Close()
		body, err := io.ReadAll(v.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return normalizeBytes(body)
	case io.Reader:
		body, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return normalizeBytes(body)
	case []byte:
		return normalizeBytes(v)
	case string:
		return normalizeBytes([]byte(v))
	default:
		return nil, &ResponseFormatError{Shape: fmt.Sprintf("%T", raw)}
	}
}

func normalizeBytes(body []byte) (*Result, error) {
	// Probe first so a structurally alien document is rejected instead of
	// silently decoding to an empty Result.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &ResponseFormatError{Shape: "invalid JSON"}
	}
	if _, hasData := probe["data"]; !hasData {
		if _, hasErrors := probe["errors"]; !hasErrors {
			return nil, &ResponseFormatError{Shape: "JSON without data or errors"}
		}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ResponseFormatError{Shape: "malformed data/errors"}
	}
	return &result, nil
}
