// Package emit serializes verdicts into the response shapes the host runtime
// expects: nothing for a plain allow, {"decision":...,"reason":...} for ask
// and deny, {"note":...} for advisory allows.
package emit

import (
	"encoding/json"
	"io"

	"github.com/mindcockpit-ai/ccguard/internal/guard"
)

// Response is the wire shape. Exactly one of Decision or Note is set.
type Response struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Note     string `json:"note,omitempty"`
}

// ForVerdict maps a verdict to its response. Nil means emit nothing: the
// host treats an empty response as "proceed".
func ForVerdict(v guard.Verdict) *Response {
	switch v.Outcome {
	case guard.Deny:
		return &Response{Decision: "deny", Reason: v.Reason}
	case guard.Ask:
		return &Response{Decision: "ask", Reason: v.Reason}
	default:
		if v.Reason != "" {
			return &Response{Note: v.Reason}
		}
		return nil
	}
}

// Write emits the verdict's response as one JSON line, or nothing at all for
// a silent allow.
func Write(w io.Writer, v guard.Verdict) error {
	resp := ForVerdict(v)
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
