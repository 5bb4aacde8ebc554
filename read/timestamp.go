package read

import (
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
)

// Timestamps are exchanged as "YYYY-MM-DDTHH:MM:SS.mmm+00:00", UTC with
// millisecond precision. The formatter always writes three millisecond
// digits; the parser tolerates one to three.

const timestampLayout = "2006-01-02T15:04:05"

// FormatTimestampMS renders milliseconds since the UNIX epoch as a UTC
// timestamp string.
func FormatTimestampMS(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	return t.Format(timestampLayout) + "." + pad3(int(ms%1000+1000)%1000) + "+00:00"
}

func pad3(ms int) string {
	s := strconv.Itoa(ms)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// ParseTimestampMS parses a timestamp written by FormatTimestampMS back
// into milliseconds since the UNIX epoch. The conversion is pure UTC and
// independent of the host timezone.
func ParseTimestampMS(ts string) (int64, error) {
	dot := strings.IndexByte(ts, '.')
	if dot < 0 {
		return 0, errors.New("timestamp missing millisecond field: " + ts)
	}
	base, err := time.ParseInLocation(timestampLayout, ts[:dot], time.UTC)
	if err != nil {
		return 0, errors.E(err, "malformed timestamp:", ts)
	}
	frac := ts[dot+1:]
	if i := strings.IndexAny(frac, "+-Z"); i >= 0 {
		frac = frac[:i]
	}
	if len(frac) == 0 || len(frac) > 3 {
		return 0, errors.New("timestamp millisecond field out of range: " + ts)
	}
	ms, err := strconv.Atoi(frac)
	if err != nil {
		return 0, errors.E(err, "malformed timestamp milliseconds:", ts)
	}
	return base.UnixMilli() + int64(ms), nil
}

// AdjustTimestampMS shifts a formatted timestamp forward by offsetMS
// milliseconds and reformats it.
func AdjustTimestampMS(ts string, offsetMS uint64) (string, error) {
	ms, err := ParseTimestampMS(ts)
	if err != nil {
		return "", err
	}
	return FormatTimestampMS(ms + int64(offsetMS)), nil
}
