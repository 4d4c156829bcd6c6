package llm

// DefaultMaxTokens caps responses when the caller sets no limit. Judge
// verdicts are short.
const DefaultMaxTokens = 512

// RequestOptions is the provider-neutral view of a request's options map.
type RequestOptions struct {
	MaxTokens   int
	Model       string
	Temperature *float64
	TopP        *float64
	System      string
}

// ParseRequestOptions reads the common keys of opts. Values of the wrong
// type or out of range fall back to the defaults.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	o := RequestOptions{
		MaxTokens: DefaultMaxTokens,
		Model:     defaultModel,
	}

	if v, ok := opts["max_tokens"].(int); ok && v > 0 {
		o.MaxTokens = v
	}
	if v, ok := opts["model"].(string); ok && v != "" {
		o.Model = v
	}
	if v, ok := opts["system"].(string); ok {
		o.System = v
	}
	if v, ok := asFloat(opts["temperature"]); ok && v >= 0 && v <= 2 {
		o.Temperature = &v
	}
	if v, ok := asFloat(opts["top_p"]); ok && v >= 0 && v <= 1 {
		o.TopP = &v
	}
	return o
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
