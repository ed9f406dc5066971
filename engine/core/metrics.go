package core

const metricsAvgCount = 30

/**
 * @brief Metrics keeps a rolling average of frame times and a frames-per-second
 * counter. Update is fed the elapsed seconds of each frame.
 */
type Metrics struct {
	frameAvgCounter int
	msTimes         [metricsAvgCount]float64
	msAvg           float64

	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameElapsedSeconds float64) {
	frameMS := frameElapsedSeconds * 1000.0

	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == metricsAvgCount-1 {
		sum := 0.0
		for i := 0; i < metricsAvgCount; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / float64(metricsAvgCount)
	}
	m.frameAvgCounter = (m.frameAvgCounter + 1) % metricsAvgCount

	m.frames++
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
}

// FPS returns the number of frames counted over the last full second.
func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime returns the rolling average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}
