package indicators

import "ultra_signals/internal/models"

// VolumeMA - среднее последних n объёмов (включая текущую свечу).
func VolumeMA(volumes []float64, n int) models.Value {
	return SMA(volumes, n)
}

// VolumeSurge: последний объём больше factor × VolumeMA.
func VolumeSurge(volumes []float64, n int, factor float64) bool {
	ma := VolumeMA(volumes, n)
	if !ma.Ok || ma.Val <= 0 {
		return false
	}
	return volumes[len(volumes)-1] > factor*ma.Val
}
