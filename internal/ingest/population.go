package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/andresuchdata/popsync/internal/fetch"
)

// DefaultPopulationKey is where the canonical population document lives.
const DefaultPopulationKey = "part2/population_data.json"

// PopulationWriter fetches the population API document and stores its
// canonical form.
type PopulationWriter struct {
	fetcher fetch.Fetcher
	store   *ChangeAwareStore
	key     string
}

func NewPopulationWriter(fetcher fetch.Fetcher, store *ChangeAwareStore, key string) *PopulationWriter {
	if key == "" {
		key = DefaultPopulationKey
	}
	return &PopulationWriter{fetcher: fetcher, store: store, key: key}
}

// Sync fetches apiURL, canonicalizes the JSON and stores it if it changed.
// It reports whether a write happened.
func (w *PopulationWriter) Sync(ctx context.Context, apiURL string) (bool, error) {
	if strings.TrimSpace(apiURL) == "" {
		return false, fmt.Errorf("%w: population api url is not set", domain.ErrConfig)
	}

	raw, err := w.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return false, fmt.Errorf("population: %w", err)
	}

	canonical, err := Canonicalize(raw)
	if err != nil {
		return false, fmt.Errorf("population api did not return JSON: %w", err)
	}

	return w.store.PutIfChanged(ctx, w.key, canonical)
}

// Canonicalize re-serializes a JSON document with object keys sorted,
// two-space indentation and a trailing newline, so documents that differ only
// in key order, whitespace or number spelling produce identical bytes.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataFormat, err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", domain.ErrDataFormat)
	}
	doc, err := normalizeNumbers(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataFormat, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// encoding/json writes map keys in sorted order.
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataFormat, err)
	}
	return buf.Bytes(), nil
}

// maxExactFloatInt is the largest integer every float64 below it can hold exactly.
const maxExactFloatInt = 1 << 53

// normalizeNumbers rewrites every json.Number in doc to one spelling per
// value: integer literals as plain decimal of any size, and other numbers as
// the shortest float64 form, or plain decimal when the value is integral.
func normalizeNumbers(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	case []any:
		for i, item := range val {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	case json.Number:
		return canonicalNumber(val)
	default:
		return v, nil
	}
}

func canonicalNumber(n json.Number) (json.Number, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("invalid number %q", s)
		}
		return json.Number(i.String()), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("number %q: %w", s, err)
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactFloatInt {
		return json.Number(strconv.FormatInt(int64(f), 10)), nil
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}
