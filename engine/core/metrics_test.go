package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsFrameTimeAverages(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 30; i++ {
		m.Update(0.016)
	}
	assert.InDelta(t, 16.0, m.FrameTime(), 0.01)
}

func TestMetricsFPSCountsFramesPerSecond(t *testing.T) {
	m := NewMetrics()
	// 60 frames at ~16.7ms cross the one second mark.
	for i := 0; i < 61; i++ {
		m.Update(1.0 / 60.0)
	}
	assert.InDelta(t, 60.0, m.FPS(), 2.0)
}

func TestMetricsZeroBeforeFirstSecond(t *testing.T) {
	m := NewMetrics()
	m.Update(0.016)
	assert.Equal(t, 0.0, m.FPS())
}
