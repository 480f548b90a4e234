package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"hmmsynth/domain/synth"
)

// DistributionAnalyzer computes shape statistics for pooled column values
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeColumn summarizes data, the concatenation of one column across
// sequences. seqs holds the per-sequence slices used for autocorrelation.
func (da *DistributionAnalyzer) AnalyzeColumn(name string, kind synth.ValueKind, data []float64, seqs [][]float64) (ColumnSummary, error) {
	summary := ColumnSummary{Name: name, Kind: kind, Type: kind.String(), Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}

	// Quartiles for IQR-based outlier detection
	q25, err := stats.Percentile(data, 25)
	if err != nil {
		return summary, err
	}

	q75, err := stats.Percentile(data, 75)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = q25
	summary.Q75 = q75
	summary.Skewness = calculateSkewness(data, mean, stdDev)
	summary.Kurtosis = calculateKurtosis(data, mean, stdDev)
	summary.Outliers = detectOutliers(data, q25, q75)
	summary.IsNormal, summary.NormalityP = testNormality(data)
	summary.Lag1 = meanLag1(seqs)

	if kind == synth.KindInt {
		summary.Levels = make(map[int64]int)
		for _, v := range data {
			summary.Levels[int64(v)]++
		}
	}
	return summary, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

// calculateKurtosis computes total (not excess) sample kurtosis
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	excessKurtosis := sumFourthDeviations/n - 3
	correction := (n - 1) / ((n - 2) * (n - 3))
	excessKurtosis = excessKurtosis*correction + 6/(n+1)

	return excessKurtosis + 3
}

// testNormality is a rough skewness/kurtosis test against a chi-squared
// reference with two degrees of freedom.
func testNormality(data []float64) (isNormal bool, pValue float64) {
	if len(data) < 4 {
		return false, 1.0
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return false, 1.0
	}

	stdDev, err := stats.StandardDeviation(data)
	if err != nil || stdDev == 0 {
		return false, 1.0
	}

	skewness := calculateSkewness(data, mean, stdDev)
	kurtosis := calculateKurtosis(data, mean, stdDev)
	testStat := math.Abs(skewness) + math.Abs(kurtosis-3)/2

	chiDist := distuv.ChiSquared{K: 2}
	pValue = 1 - chiDist.CDF(testStat*testStat)
	return pValue > 0.05, pValue
}

// detectOutliers counts values outside the 1.5 IQR fences
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}

	return outlierCount
}

// meanLag1 averages the lag-1 autocorrelation of the non-constant sequences.
func meanLag1(seqs [][]float64) float64 {
	var sum float64
	var n int
	for _, s := range seqs {
		if len(s) < 2 {
			continue
		}
		if sd, err := stats.StandardDeviation(s); err != nil || sd == 0 {
			continue
		}
		ac, err := stats.AutoCorrelation(s, 1)
		if err != nil || math.IsNaN(ac) {
			continue
		}
		sum += ac
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
