package marlin_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/printerctl/internal/marlin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want marlin.LineClass
	}{
		{"plain ack", "ok", marlin.LineAck},
		{"ack with payload", "ok P15 B3", marlin.LineAck},
		{"ack with surrounding whitespace", "  ok \r", marlin.LineAck},
		{"temperature report", "T:20.38 /185.00 @:127", marlin.LineTemperatureReport},
		{"position report", "X:101.00 Y:0.00 Z:0.00 E:0.00", marlin.LinePositionReport},
		{"ack wins over telemetry lookalike", "ok T:20.38 /185.00", marlin.LineAck},
		{"firmware banner", "echo:Marlin 2.1.2", marlin.LineUnknown},
		{"error line", "Error:checksum mismatch", marlin.LineUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, marlin.Classify(tt.line))
		})
	}
}

func TestParseTemperatureReport(t *testing.T) {
	now := time.Now()

	samples, err := marlin.ParseTemperatureReport("T:20.38 /185.00 @:127", now)
	require.NoError(t, err)

	require.Contains(t, samples, "T")
	sample := samples["T"]
	assert.InDelta(t, 20.38, sample.Actual, 1e-9)
	require.NotNil(t, sample.Setpoint)
	assert.InDelta(t, 185.00, *sample.Setpoint, 1e-9)
	assert.Equal(t, now, sample.Timestamp)

	// The PWM duty field must not become a sensor.
	assert.Len(t, samples, 1)
}

func TestParseTemperatureReportMultipleSensors(t *testing.T) {
	now := time.Now()

	samples, err := marlin.ParseTemperatureReport("T:210.00 /210.00 B:60.12 /60.00 A:24.50 @:64 B@:0", now)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	require.NotNil(t, samples["T"].Setpoint)
	assert.InDelta(t, 210.00, samples["T"].Actual, 1e-9)
	require.NotNil(t, samples["B"].Setpoint)
	assert.InDelta(t, 60.00, *samples["B"].Setpoint, 1e-9)

	// Ambient sensor has no target.
	assert.InDelta(t, 24.50, samples["A"].Actual, 1e-9)
	assert.Nil(t, samples["A"].Setpoint)
}

func TestParseTemperatureReportMalformed(t *testing.T) {
	now := time.Now()

	_, err := marlin.ParseTemperatureReport("T:hot /185.00", now)
	require.Error(t, err)

	_, err = marlin.ParseTemperatureReport("T:20.38 /target", now)
	require.Error(t, err)

	_, err = marlin.ParseTemperatureReport("T:20.38 garbage", now)
	require.Error(t, err)
}

func TestParsePositionReport(t *testing.T) {
	now := time.Now()

	samples, err := marlin.ParsePositionReport("X:101.00 Y:0.00 Z:0.00 E:0.00 Count X:10100 Y:0 Z:0", now)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	x := samples["X"]
	require.NotNil(t, x.Value)
	require.NotNil(t, x.Steps)
	assert.InDelta(t, 101.00, *x.Value, 1e-9)
	assert.InDelta(t, 10100, *x.Steps, 1e-9)

	// E appears only in the millimeter half.
	e := samples["E"]
	require.NotNil(t, e.Value)
	assert.Nil(t, e.Steps)
	assert.InDelta(t, 0.0, *e.Value, 1e-9)
}

func TestParsePositionReportWithoutCount(t *testing.T) {
	now := time.Now()

	samples, err := marlin.ParsePositionReport("X:1.50 Y:2.25", now)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.NotNil(t, samples["Y"].Value)
	assert.InDelta(t, 2.25, *samples["Y"].Value, 1e-9)
	assert.Nil(t, samples["Y"].Steps)
}

func TestParsePositionReportMalformed(t *testing.T) {
	now := time.Now()

	_, err := marlin.ParsePositionReport("X:abc Y:0.00", now)
	require.Error(t, err)

	_, err = marlin.ParsePositionReport("X:1.00 Count X:steps", now)
	require.Error(t, err)
}
