package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/andresuchdata/popsync/internal/domain"
)

// fieldAliases lists, per logical field, the source field names accepted for
// it in priority order. The population API has shipped both spellings.
var fieldAliases = map[string][]string{
	"year":       {"Year", "year"},
	"population": {"Population", "value"},
}

// recordListFields are the document fields that may hold the record list, in
// priority order. A document that is itself an array is used directly.
var recordListFields = []string{"data", "records"}

// ParseRecords decodes a stored population document into normalized records.
//
// A record without a population value counts as population 0. That keeps
// rows the API publishes with a null measure, at the cost of pulling the
// mean down when it happens.
func ParseRecords(raw []byte) ([]domain.PopulationRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode population document: %v", domain.ErrDataFormat, err)
	}

	rows, err := recordList(doc)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PopulationRecord, 0, len(rows))
	for i, row := range rows {
		fields, ok := row.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: record %d is not an object", domain.ErrDataFormat, i)
		}
		rec, err := normalizeRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordList(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		var empty []any
		for _, field := range recordListFields {
			list, ok := v[field].([]any)
			if !ok {
				continue
			}
			if len(list) > 0 {
				return list, nil
			}
			if empty == nil {
				empty = list
			}
		}
		if empty != nil {
			return empty, nil
		}
		return nil, fmt.Errorf("%w: no record list under %s", domain.ErrDataFormat, strings.Join(recordListFields, " or "))
	default:
		return nil, fmt.Errorf("%w: population document is neither an object nor an array", domain.ErrDataFormat)
	}
}

func normalizeRecord(fields map[string]any) (domain.PopulationRecord, error) {
	rawYear, ok := lookup(fields, "year")
	if !ok {
		return domain.PopulationRecord{}, fmt.Errorf("%w: missing year (%s)", domain.ErrDataFormat, strings.Join(fieldAliases["year"], "/"))
	}
	year, err := toWholeInt(rawYear)
	if err != nil {
		return domain.PopulationRecord{}, fmt.Errorf("%w: year: %v", domain.ErrDataFormat, err)
	}

	var population int64
	if rawPop, ok := lookup(fields, "population"); ok {
		population, err = toInt(rawPop)
		if err != nil {
			return domain.PopulationRecord{}, fmt.Errorf("%w: population: %v", domain.ErrDataFormat, err)
		}
	}

	return domain.PopulationRecord{Year: int(year), Population: population}, nil
}

// lookup returns the first alias of field holding a non-empty value. Zero is
// a value, so {"Population": 0, "value": 5} yields 0.
func lookup(fields map[string]any, field string) (any, bool) {
	for _, name := range fieldAliases[field] {
		v, ok := fields[name]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// toInt accepts JSON numbers and numeric strings. Fractional values are
// truncated toward zero.
func toInt(v any) (int64, error) {
	n, _, err := parseInt(v)
	return n, err
}

// toWholeInt is toInt for fields where a fraction means the value is wrong.
func toWholeInt(v any) (int64, error) {
	n, whole, err := parseInt(v)
	if err != nil {
		return 0, err
	}
	if !whole {
		return 0, fmt.Errorf("not a whole number: %v", v)
	}
	return n, nil
}

// parseInt truncates v to an integer and reports whether it already was one.
func parseInt(v any) (int64, bool, error) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	case float64:
		return floatToInt(n)
	default:
		return 0, false, fmt.Errorf("not a number: %v", v)
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", s)
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int64, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false, fmt.Errorf("out of range: %v", f)
	}
	return int64(f), f == math.Trunc(f), nil
}
