package answer

import (
	"strings"
	"time"
)

const (
	// DefaultDateTimeFormat is used when a date-time type declares no format.
	DefaultDateTimeFormat = "yyyy-MM-dd'T'HH:mm:ss.SSSXXX"
	// DefaultTimeFormat is used when a time type declares no format.
	DefaultTimeFormat = "HH:mm:ss"
)

// DateTimeType holds time.Time answers serialized with a coding format
// written in the ISO 8601 pattern letters used by the definition files
// (for example "yyyy-MM-dd").
type DateTimeType struct {
	CodingFormat string
}

// TimeType holds a time of day, serialized with a coding format.
type TimeType struct {
	CodingFormat string
}

// DateTime creates a date-time answer type.
func DateTime(codingFormat string) Type { return &DateTimeType{CodingFormat: codingFormat} }

// TimeOfDay creates a time answer type.
func TimeOfDay(codingFormat string) Type { return &TimeType{CodingFormat: codingFormat} }

func (t *DateTimeType) Kind() Kind { return KindDateTime }

func (t *DateTimeType) Encode(value any) (any, error) {
	return encodeTime(KindDateTime, orDefault(t.CodingFormat, DefaultDateTimeFormat), value)
}

func (t *DateTimeType) Decode(raw any) (any, error) {
	return decodeTime(KindDateTime, orDefault(t.CodingFormat, DefaultDateTimeFormat), raw)
}

func (t *TimeType) Kind() Kind { return KindTime }

func (t *TimeType) Encode(value any) (any, error) {
	return encodeTime(KindTime, orDefault(t.CodingFormat, DefaultTimeFormat), value)
}

func (t *TimeType) Decode(raw any) (any, error) {
	return decodeTime(KindTime, orDefault(t.CodingFormat, DefaultTimeFormat), raw)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func encodeTime(kind Kind, format string, value any) (any, error) {
	v, err := decodeTime(kind, format, value)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(time.Time).Format(Layout(format)), nil
}

func decodeTime(kind Kind, format string, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		parsed, err := time.Parse(Layout(format), v)
		if err != nil {
			if parsed, err = time.Parse(time.RFC3339Nano, v); err != nil {
				return nil, mismatch(kind, raw, "does not match %q", format)
			}
		}
		return parsed.UTC(), nil
	default:
		return nil, mismatch(kind, raw, "expected timestamp string")
	}
}

// Layout converts an ISO 8601 coding format into a Go time layout.
func Layout(format string) string {
	var b strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); {
		c := runes[i]

		if c == '\'' {
			// Quoted literal; '' is an escaped quote.
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\'' {
					if j+1 < len(runes) && runes[j+1] == '\'' {
						b.WriteRune('\'')
						j += 2
						continue
					}
					break
				}
				b.WriteRune(runes[j])
				j++
			}
			i = j + 1
			continue
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == c {
			n++
		}
		b.WriteString(layoutToken(c, n))
		i += n
	}
	return b.String()
}

func layoutToken(c rune, n int) string {
	switch c {
	case 'y':
		if n == 2 {
			return "06"
		}
		return "2006"
	case 'M':
		switch {
		case n == 1:
			return "1"
		case n == 2:
			return "01"
		case n == 3:
			return "Jan"
		default:
			return "January"
		}
	case 'd':
		if n == 1 {
			return "2"
		}
		return "02"
	case 'H':
		return "15"
	case 'h':
		if n == 1 {
			return "3"
		}
		return "03"
	case 'm':
		if n == 1 {
			return "4"
		}
		return "04"
	case 's':
		if n == 1 {
			return "5"
		}
		return "05"
	case 'S':
		return strings.Repeat("0", n)
	case 'a':
		return "PM"
	case 'E':
		if n >= 4 {
			return "Monday"
		}
		return "Mon"
	case 'X':
		switch n {
		case 1:
			return "Z07"
		case 2:
			return "Z0700"
		default:
			return "Z07:00"
		}
	case 'Z':
		if n >= 5 {
			return "Z07:00"
		}
		return "-0700"
	case 'z':
		return "MST"
	default:
		return strings.Repeat(string(c), n)
	}
}
