// Package marlin implements the line protocol spoken by Marlin-family
// printer firmware: classification and parsing of the firmware's
// asynchronous report lines, a session correlating commands with their
// acknowledgements, and a background poller that keeps position and
// temperature telemetry fresh.
//
// This is not a full Marlin implementation, but it is built to be extended:
// the firmware's sensor and axis labels form an open alphabet, so telemetry
// is modeled as maps keyed by whatever labels the firmware reports.
package marlin

import (
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/printerctl/internal/errors"
)

// TemperatureSample is the latest reading for one sensor label ("T" for the
// hotend, "B" for the bed, and so on). Setpoint is nil when the firmware
// reported a bare reading with no target, such as an ambient sensor.
type TemperatureSample struct {
	Timestamp time.Time
	Actual    float64
	Setpoint  *float64
}

// PositionSample is the latest reading for one axis label. Value is the
// position in millimeters, Steps the raw step count; either may be nil when
// only one half of the report mentioned the axis, but never both.
type PositionSample struct {
	Timestamp time.Time
	Value     *float64
	Steps     *float64
}

// RawReport retains the unparsed text of the last report of each class for
// diagnostics.
type RawReport struct {
	Timestamp time.Time
	Line      string
}

// LineClass is the coarse classification of an inbound line.
type LineClass int

const (
	LineUnknown LineClass = iota
	LineAck
	LineTemperatureReport
	LinePositionReport
)

// Classify determines how an inbound line should be handled. The dispatch is
// prefix-based on purpose: "ok" always wins, so an acknowledgement can never
// be mistaken for telemetry.
func Classify(line string) LineClass {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "ok"):
		return LineAck
	case strings.HasPrefix(line, "X"):
		return LinePositionReport
	case strings.HasPrefix(line, "T"):
		return LineTemperatureReport
	default:
		return LineUnknown
	}
}

// ParseTemperatureReport extracts per-sensor samples from a temperature
// report line such as
//
//	T:20.38 /185.00 @:127
//
// Fields labeled with "@" carry PWM duty, not a temperature, and are
// skipped.
func ParseTemperatureReport(line string, now time.Time) (map[string]TemperatureSample, error) {
	errFactory := errors.New()

	// The firmware writes the setpoint as its own " /185.00" token; rejoin
	// it with the reading so each whitespace-delimited token is complete.
	line = strings.ReplaceAll(line, " /", "/")

	samples := make(map[string]TemperatureSample)
	for _, token := range strings.Fields(line) {
		label, value, found := strings.Cut(token, ":")
		if strings.Contains(label, "@") {
			continue
		}
		if !found {
			return nil, errFactory.WithMessage(ErrParseFailed, "temperature field without value").
				WithData(token)
		}

		actualText, setpointText, hasSetpoint := strings.Cut(value, "/")
		actual, err := strconv.ParseFloat(actualText, 64)
		if err != nil {
			return nil, errFactory.Wrap(ErrParseFailed, err).WithData(token)
		}

		sample := TemperatureSample{Timestamp: now, Actual: actual}
		if hasSetpoint {
			setpoint, err := strconv.ParseFloat(setpointText, 64)
			if err != nil {
				return nil, errFactory.Wrap(ErrParseFailed, err).WithData(token)
			}
			sample.Setpoint = &setpoint
		}
		samples[label] = sample
	}

	return samples, nil
}

// ParsePositionReport extracts per-axis samples from a position report line
// such as
//
//	X:101.00 Y:0.00 Z:0.00 E:0.00 Count X:10100 Y:0 Z:0
//
// The part before "Count" reports millimeters, the part after reports step
// counts. An axis mentioned in only one half yields a sample with the other
// field absent.
func ParsePositionReport(line string, now time.Time) (map[string]PositionSample, error) {
	millimeters, counts, _ := strings.Cut(line, "Count")

	valuesMM, err := parseAxisFields(millimeters)
	if err != nil {
		return nil, err
	}
	valuesSteps, err := parseAxisFields(counts)
	if err != nil {
		return nil, err
	}

	samples := make(map[string]PositionSample, len(valuesMM))
	for label, value := range valuesMM {
		v := value
		samples[label] = PositionSample{Timestamp: now, Value: &v}
	}
	for label, steps := range valuesSteps {
		s := steps
		sample := samples[label]
		sample.Timestamp = now
		sample.Steps = &s
		samples[label] = sample
	}

	return samples, nil
}

func parseAxisFields(part string) (map[string]float64, error) {
	errFactory := errors.New()

	fields := make(map[string]float64)
	for _, token := range strings.Fields(part) {
		label, value, found := strings.Cut(token, ":")
		if !found {
			return nil, errFactory.WithMessage(ErrParseFailed, "position field without value").
				WithData(token)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errFactory.Wrap(ErrParseFailed, err).WithData(token)
		}
		fields[label] = f
	}

	return fields, nil
}
