package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Time decodes the timestamp shapes the hosted sources emit: RFC 3339
// strings, bare dates, epoch milliseconds and null.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values decode to the
// zero time instead of failing the whole page.
func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	t.Time = time.Time{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '"' {
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil
		}
		// Values this large are milliseconds.
		if n > 1e11 || n < -1e11 {
			t.Time = time.UnixMilli(n).UTC()
		} else {
			t.Time = time.Unix(n, 0).UTC()
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t.Time = ParseTime(s)
	return nil
}

// ParseTime parses a timestamp string. Values without a zone are UTC.
// Unrecognised input gives the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	ts, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
