package film

import "math"

// 1-D signal helpers shared by boundary detection and content cropping.

// smooth applies a centered moving average of the given window size. Even
// window sizes are bumped to the next odd value so the result stays aligned.
func smooth(signal []float64, window int) []float64 {
	if window < 2 || len(signal) == 0 {
		return signal
	}
	if window%2 == 0 {
		window++
	}

	half := window / 2
	out := make([]float64, len(signal))
	for i := range signal {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(signal) {
			hi = len(signal)
		}
		sum := 0.0
		for j := lo; j < hi; j++ {
			sum += signal[j]
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// gradient returns the central-difference derivative of the signal, with
// one-sided differences at the ends.
func gradient(signal []float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if n < 2 {
		return out
	}

	out[0] = signal[1] - signal[0]
	out[n-1] = signal[n-1] - signal[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (signal[i+1] - signal[i-1]) / 2
	}
	return out
}

// localMaxima returns the indices of strict-or-plateau local maxima of
// |signal| whose magnitude exceeds threshold. A flat run contributes only
// its first index.
func localMaxima(signal []float64, threshold float64) []int {
	var peaks []int
	for i := 1; i < len(signal)-1; i++ {
		v := math.Abs(signal[i])
		if v <= threshold {
			continue
		}
		if v == math.Abs(signal[i-1]) {
			continue
		}
		if v > math.Abs(signal[i-1]) && v >= math.Abs(signal[i+1]) {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

func stddev(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range signal {
		mean += v
	}
	mean /= float64(len(signal))

	variance := 0.0
	for _, v := range signal {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(signal)))
}

func maxOf(signal []float64) float64 {
	max := math.Inf(-1)
	for _, v := range signal {
		if v > max {
			max = v
		}
	}
	return max
}
