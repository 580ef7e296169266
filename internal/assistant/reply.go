package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tbourn/vendorbot/internal/domain"
)

// Intents reported by the model. Unknown values pass through upper-cased.
const (
	IntentOrder    = "ORDER"
	IntentInquiry  = "INQUIRY"
	IntentChitchat = "CHITCHAT"
)

// FallbackText is used when the model output carries no usable text.
const FallbackText = "I didn't understand."

// Reply is the normalized assistant result.
type Reply struct {
	Text         string
	Intent       string
	Complete     bool
	OrderSummary string
	Items        []domain.OrderLine
	Total        float64
}

// Normalize converts raw model output into a Reply.
//
// JSON objects (optionally wrapped in a markdown code fence or surrounded by
// prose) are decoded. The text comes from "message", "text" or
// "reply_message", else the first string field in document order, else
// FallbackText. The order is complete when "status" is "complete" or the
// intent is "complete"/"order_complete". Non-JSON output becomes the reply
// text with the CHITCHAT intent.
func Normalize(raw string) Reply {
	raw = strings.TrimSpace(raw)
	obj, src, ok := decodeObject(raw)
	if !ok {
		if raw == "" {
			raw = FallbackText
		}
		return Reply{Text: raw, Intent: IntentChitchat}
	}

	r := Reply{Intent: IntentChitchat}
	r.Text = pickText(obj, topLevelKeys(src))

	if s, ok := obj["intent"].(string); ok && strings.TrimSpace(s) != "" {
		r.Intent = strings.ToUpper(strings.TrimSpace(s))
	}
	status, _ := obj["status"].(string)
	switch {
	case strings.EqualFold(strings.TrimSpace(status), "complete"):
		r.Complete = true
	case r.Intent == "COMPLETE" || r.Intent == "ORDER_COMPLETE":
		r.Complete = true
	}

	r.Items = pickItems(obj["order_items"])
	r.OrderSummary = pickSummary(obj, r.Items)
	r.Total = pickNumber(obj["total"])
	return r
}

// decodeObject extracts a JSON object from raw text and returns it with the
// source it was decoded from.
func decodeObject(raw string) (map[string]any, string, bool) {
	s := stripFence(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, s, true
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, "", false
	}
	s = s[start : end+1]
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, "", false
	}
	return obj, s, true
}

// topLevelKeys lists the keys of the JSON object in src in document order.
func topLevelKeys(src string) []string {
	dec := json.NewDecoder(strings.NewReader(src))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		k, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, k)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func pickText(obj map[string]any, keys []string) string {
	for _, k := range []string{"message", "text", "reply_message"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return FallbackText
}

func pickItems(v any) []domain.OrderLine {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.OrderLine, 0, len(arr))
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["item_name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		q := int(pickNumber(m["quantity"]))
		if q <= 0 {
			q = 1
		}
		out = append(out, domain.OrderLine{ItemName: name, Quantity: q})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func pickSummary(obj map[string]any, items []domain.OrderLine) string {
	for _, k := range []string{"order", "order_summary"} {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%d x %s", it.Quantity, it.ItemName))
	}
	return strings.Join(parts, ", ")
}

// pickNumber reads a JSON number or a numeric string; anything else is 0.
func pickNumber(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "N")), 64)
		if err != nil {
			return 0
		}
		f = p
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
