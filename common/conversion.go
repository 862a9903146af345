package common

import (
	"strconv"
	"strings"
	"time"

	"github.com/squareup/lazyrows/errors"
)

// Normalize converts a Go value into one of the cell representations: nil, int64, float64, string or []byte.
func Normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, int64, float64, string, []byte:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	default:
		return nil, errors.Errorf("unsupported cell value type %T", value)
	}
}

// ToInt64 converts a cell value to an integer. Text is parsed leniently, unparseable text yields 0.
func ToInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	default:
		return 0
	}
}

func ToFloat64(value interface{}) float64 {
	switch v := value.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return 0
	}
}

// ToString converts a cell value to text. NULL becomes the empty string.
func ToString(value interface{}) string {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func ToBytes(value interface{}) []byte {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return v
	default:
		return []byte(ToString(v))
	}
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return int64(parseFloat(s))
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// Compare orders two normalized values: NULL first, then numbers, then text, then blobs.
func Compare(a interface{}, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		ai, aInt := a.(int64)
		bi, bInt := b.(int64)
		if aInt && bInt {
			return compareInt64(ai, bi)
		}
		return compareFloat64(ToFloat64(a), ToFloat64(b))
	case 2:
		return strings.Compare(a.(string), b.(string))
	default:
		return compareBytes(a.([]byte), b.([]byte))
	}
}

func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case int64, float64:
		return 1
	case string:
		return 2
	default:
		return 3
	}
}

func compareInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a float64, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(b1 []byte, b2 []byte) int {
	lb1 := len(b1)
	lb2 := len(b2)
	min := lb1
	if lb2 < min {
		min = lb2
	}
	for i := 0; i < min; i++ {
		if b1[i] == b2[i] {
			continue
		} else if b1[i] > b2[i] {
			return 1
		}
		return -1
	}
	return compareInt64(int64(lb1), int64(lb2))
}
