package datatable

import (
	"cmp"
	"encoding/json"
	"math"
	"strings"
	"time"
)

type valueRank int

const (
	rankBool valueRank = iota
	rankNumber
	rankString
	rankTime
	rankOther
	rankMissing
)

// compareValues defines a total order over resolved cell values. Missing
// values (absent, nil, NaN) rank after everything else.
func compareValues(a, b any) int {
	a, b = derefTime(a), derefTime(b)
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		af, _ := numericValue(a)
		bf, _ := numericValue(b)
		return cmp.Compare(af, bf)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return 0
	}
}

func rankOf(v any) valueRank {
	switch v.(type) {
	case nil:
		return rankMissing
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time:
		return rankTime
	}
	if f, ok := numericValue(v); ok {
		if math.IsNaN(f) {
			return rankMissing
		}
		return rankNumber
	}
	return rankOther
}

func numericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func derefTime(v any) any {
	if t, ok := v.(*time.Time); ok {
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}
