package convert

import (
	"fmt"

	"github.com/nao1215/httpreqs/internal/model"
)

// Headers normalizes a header list into an ordered mapping.
//
// The input looks like [["User-Agent", ["Mozilla/5.0"]], ["Accept", ["*/*"]]].
// A name seen again appends its values to the earlier ones. A scalar where
// the value list should be is read as a one-element list. An empty list
// yields an empty mapping; nil yields nil.
func Headers(v any) (*model.Headers, error) {
	if v == nil {
		return nil, nil
	}
	pairs, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a sequence of pairs, got %T", ErrMalformedHeaders, v)
	}

	headers := model.NewHeaders()
	for i, raw := range pairs {
		name, values, err := headerPair(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d: %s", ErrMalformedHeaders, i, err)
		}
		headers.Add(name, values...)
	}
	return headers, nil
}

// headerPair splits one [name, values] pair.
func headerPair(raw any) (string, []string, error) {
	pair, ok := raw.([]any)
	if !ok {
		return "", nil, fmt.Errorf("expected [name, values], got %T", raw)
	}
	if len(pair) != 2 {
		return "", nil, fmt.Errorf("expected 2 elements, got %d", len(pair))
	}

	name, ok := pair[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("header name must be text, got %T", pair[0])
	}

	switch vals := pair[1].(type) {
	case nil:
		return name, nil, nil
	case []any:
		values, err := TextList(vals)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %v", name, err)
		}
		return name, values, nil
	default:
		s, err := Text(vals)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %v", name, err)
		}
		return name, []string{*s}, nil
	}
}
