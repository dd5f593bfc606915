package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Parsed is the result of parsing a scene or light name.
type Parsed struct {
	DisplayName string
	Windows     []Window
	Attached    bool
}

// Annotated reports whether the name carried a valid window list.
func (p Parsed) Annotated() bool {
	return len(p.Windows) > 0
}

var (
	// "(att)" marker, anywhere in the name
	attPattern = regexp.MustCompile(`\(\s*att\s*\)`)
	// trailing parenthesized annotation, e.g. "(17h-sunset)" or "(8AM-10:30h, 17h-sunset)"
	annotationPattern = regexp.MustCompile(`\(([^()]+)\)\s*$`)
	// 24-hour endpoint: "12h", "13:45h", "0h", "9:20h"
	clock24Pattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?h$`)
	// 12-hour endpoint: "3AM", "8PM", "11pm"
	clock12Pattern = regexp.MustCompile(`^(\d{1,2})\s*([ap]m)$`)
)

// Parse extracts the display name, time windows and attachment marker from
// a raw scene or light name.
//
// A malformed window list is not an error: the name is treated as
// unannotated and a warning is logged, so a misconfigured scene can never
// take the process down.
func Parse(rawName string) Parsed {
	name := rawName

	attached := attPattern.MatchString(name)
	if attached {
		name = attPattern.ReplaceAllString(name, " ")
	}

	var windows []Window
	if m := annotationPattern.FindStringSubmatchIndex(name); m != nil {
		list := name[m[2]:m[3]]
		parsed, err := parseWindowList(list)
		if err != nil {
			if looksLikeWindowList(list) {
				log.Warn().
					Str("name", rawName).
					Err(err).
					Msg("Malformed time window annotation, scene treated as unannotated")
			}
		} else {
			windows = parsed
			name = name[:m[0]]
		}
	}

	return Parsed{
		DisplayName: strings.Join(strings.Fields(name), " "),
		Windows:     windows,
		Attached:    attached,
	}
}

// looksLikeWindowList distinguishes a broken time annotation from ordinary
// parentheses in a name, so "Dining (cozy)" parses silently while
// "Dining (10h-25h)" produces a warning.
func looksLikeWindowList(list string) bool {
	return strings.Contains(list, "-")
}

func parseWindowList(list string) ([]Window, error) {
	parts := strings.Split(list, ",")
	windows := make([]Window, 0, len(parts))

	for _, part := range parts {
		w, err := parseWindow(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	return windows, nil
}

func parseWindow(s string) (Window, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid window %q", s)
	}

	start, err := parsePoint(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, err
	}
	end, err := parsePoint(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, err
	}

	return Window{Start: start, End: end}, nil
}

func parsePoint(s string) (TimePoint, error) {
	switch strings.ToLower(s) {
	case "sunrise":
		return TimePoint{Kind: PointSunrise}, nil
	case "sunset":
		return TimePoint{Kind: PointSunset}, nil
	}

	if m := clock24Pattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return TimePoint{}, fmt.Errorf("invalid hour in %q", s)
		}
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
			if minute > 59 {
				return TimePoint{}, fmt.Errorf("invalid minute in %q", s)
			}
		}
		return TimePoint{Kind: PointClock, Hour: hour, Minute: minute}, nil
	}

	if m := clock12Pattern.FindStringSubmatch(strings.ToLower(s)); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 1 || hour > 12 {
			return TimePoint{}, fmt.Errorf("invalid hour in %q", s)
		}
		hour %= 12 // 12AM -> 0, 12PM -> 12 after meridiem shift
		if m[2] == "pm" {
			hour += 12
		}
		return TimePoint{Kind: PointClock, Hour: hour}, nil
	}

	return TimePoint{}, fmt.Errorf("invalid time point %q", s)
}
