package timetable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Time is a number of seconds after midnight of the service day. Values past 24h are valid and
// describe trips running after midnight.
type Time int32

const Infinity Time = math.MaxInt32

// MaxTime is the latest service day time ParseTime accepts.
const MaxTime Time = 48 * 3600

func (t Time) Reachable() bool {
	return t != Infinity
}

func (t Time) String() string {
	if t == Infinity {
		return "--:--:--"
	}

	sign := ""
	value := int(t)
	if value < 0 {
		sign = "-"
		value = -value
	}

	return fmt.Sprintf("%s%02d:%02d:%02d", sign, value/3600, (value/60)%60, value%60)
}

// ParseTime reads HH:MM:SS (or H:MM:SS, or HH:MM) as used by GTFS. Hours above 23 are allowed up to
// MaxTime.
func ParseTime(value string) (Time, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}

	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", value)
		}
		fields[i] = n
	}

	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	if fields[0] > int(MaxTime/3600) {
		return 0, fmt.Errorf("time %q is past %s", value, MaxTime)
	}

	t := Time(fields[0]*3600 + fields[1]*60 + fields[2])
	if t > MaxTime {
		return 0, fmt.Errorf("time %q is past %s", value, MaxTime)
	}
	return t, nil
}

func MustParseTime(value string) Time {
	t, err := ParseTime(value)
	if err != nil {
		panic(err)
	}
	return t
}
