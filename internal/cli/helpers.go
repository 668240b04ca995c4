package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/notesprobe/internal/tui"
	"github.com/notesprobe/pkg/apiclient"
)

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return d, nil
}

// parsePairs splits "key<sep>value" arguments.
func parsePairs(args []string, sep string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, sep)
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key%svalue, got %q", sep, arg)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// bodyValue keeps numbers and booleans typed so JSON bodies match what
// the API expects.
func bodyValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// printBody writes body as indented JSON when it parses, raw otherwise.
func printBody(w io.Writer, body []byte) {
	if len(body) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Fprintln(w, string(body))
		return
	}
	fmt.Fprintln(w, buf.String())
}

// printResult writes the status line and body of a successful call.
func printResult(w io.Writer, res *apiclient.Result) {
	fmt.Fprintf(w, "%s HTTP %d in %s\n",
		tui.SuccessStyle.Render(tui.CheckMark), res.StatusCode, res.Elapsed.Round(time.Millisecond))
	printBody(w, res.Body)
}

// printFailure writes an API error with whatever response body it carries.
func printFailure(w io.Writer, err error) {
	apiErr, ok := apiclient.AsError(err)
	if !ok {
		fmt.Fprintln(w, tui.ErrorStyle.Render(tui.CrossMark+" "+err.Error()))
		return
	}
	fmt.Fprintln(w, tui.ErrorStyle.Render(tui.CrossMark+" "+apiErr.String()))
	switch resp := apiErr.Response.(type) {
	case nil:
	case string:
		if resp != "" {
			fmt.Fprintln(w, resp)
		}
	default:
		if b, err := json.MarshalIndent(resp, "", "  "); err == nil {
			fmt.Fprintln(w, string(b))
		}
	}
}
