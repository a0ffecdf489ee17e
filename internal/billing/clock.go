package billing

import "time"

// Clock abstrae la hora actual para que el cálculo de tiempo
// transcurrido sea determinista en pruebas.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func SystemClock() Clock {
	return systemClock{}
}
