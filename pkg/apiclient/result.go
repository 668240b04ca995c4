package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Result is a successful (2xx) response, returned without interpretation.
type Result struct {
	StatusCode int
	Header     http.Header
	Elapsed    time.Duration
	Body       []byte
}

// JSON decodes the body as a JSON object.
func (r *Result) JSON() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	return out, nil
}

// Decode unmarshals the JSON body into v.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Result) Text() string {
	return string(r.Body)
}

// encodeBody renders body for the wire. An empty body yields nil.
func encodeBody(body map[string]any, ct ContentType) ([]byte, error) {
	if len(body) == 0 {
		return nil, nil
	}
	if ct == ContentForm {
		return []byte(formEncode(body)), nil
	}
	return json.Marshal(body)
}

// formEncode URL-encodes body; slices become repeated keys.
func formEncode(body map[string]any) string {
	values := url.Values{}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := body[k].(type) {
		case []string:
			values[k] = append(values[k], v...)
		case []any:
			for _, item := range v {
				values.Add(k, formValue(item))
			}
		default:
			values.Add(k, formValue(v))
		}
	}
	return values.Encode()
}

func formValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
