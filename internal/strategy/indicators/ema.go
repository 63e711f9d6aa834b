package indicators

import "ultra_signals/internal/models"

type emaState struct {
	period int
	alpha  float64
	value  float64
	warmup int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

// Update: первое значение - затравка, дальше обычное сглаживание.
func (e *emaState) Update(price float64) {
	if e.warmup == 0 {
		e.value = price
		e.warmup = 1
		return
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	if e.warmup < e.period {
		e.warmup++
	}
}

func (e *emaState) Ready() bool    { return e.warmup >= e.period }
func (e *emaState) Value() float64 { return e.value }

// EMASeries возвращает EMA для каждой точки ряда (без учёта прогрева).
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	st := newEMA(period)
	for i, v := range values {
		st.Update(v)
		out[i] = st.Value()
	}
	return out
}

// EMA по последней точке; недоступна, пока точек меньше периода.
func EMA(values []float64, period int) models.Value {
	if period <= 0 || len(values) < period {
		return models.None()
	}
	st := newEMA(period)
	for _, v := range values {
		st.Update(v)
	}
	if !st.Ready() {
		return models.None()
	}
	return models.Some(st.Value())
}

// SMA по последним period значениям.
func SMA(values []float64, period int) models.Value {
	if period <= 0 || len(values) < period {
		return models.None()
	}
	return models.Some(mean(values[len(values)-period:]))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
