package app

import "math"

const (
	defaultMinSignal = -95.0 // dBm
	defaultMaxSignal = -30.0 // dBm

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20

	minimumSignalRange = 20 // dB
)

// SignalBounds represents the signal range mapped onto the color theme
type SignalBounds struct {
	Min  float64 // 5th percentile RSSI in dBm, less a margin
	Max  float64 // 95th percentile RSSI in dBm, plus a margin
	Mean float64 // Mean RSSI in dBm
}

func defaultSignalBounds() SignalBounds {
	return SignalBounds{
		Min:  defaultMinSignal,
		Max:  defaultMaxSignal,
		Mean: (defaultMinSignal + defaultMaxSignal) / 2,
	}
}

// SignalHistogram counts RSSI readings in 1dBm bins
type SignalHistogram struct {
	bins       map[int]uint32
	totalCount uint64
	minBin     int
	maxBin     int
}

// NewSignalHistogram creates a new histogram
func NewSignalHistogram() *SignalHistogram {
	return &SignalHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

// Add records a single reading
func (h *SignalHistogram) Add(rssi int) {
	if h.bins[rssi] == math.MaxUint32 {
		return // saturated, the bin cannot become more significant
	}

	h.bins[rssi]++
	h.totalCount++

	h.minBin = min(h.minBin, rssi)
	h.maxBin = max(h.maxBin, rssi)
}

// Count returns the number of readings
func (h *SignalHistogram) Count() uint64 {
	return h.totalCount
}

// Bounds returns the percentile bounds, or defaults while there are too few
// readings to tell.
func (h *SignalHistogram) Bounds() SignalBounds {
	if h.totalCount < minimumSampleCount {
		return defaultSignalBounds()
	}

	target5th := h.totalCount * 5 / 100

	var count uint64
	var min5th, max95th int

	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target5th {
			min5th = bin
			break
		}
	}

	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target5th {
			max95th = bin
			break
		}
	}

	var sumProduct float64
	for bin, n := range h.bins {
		sumProduct += float64(bin) * float64(n)
	}
	mean := sumProduct / float64(h.totalCount)

	if max95th-min5th < minimumSignalRange {
		center := (max95th + min5th) / 2
		min5th = center - minimumSignalRange/2
		max95th = center + minimumSignalRange/2
	}

	margin := (max95th - min5th) / 10

	return SignalBounds{
		Min:  float64(min5th - margin),
		Max:  float64(max95th + margin),
		Mean: mean,
	}
}
