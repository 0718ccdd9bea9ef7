package gyroscope

import "time"

// TickSource is a monotonic millisecond counter. Callers compute elapsed time
// with unsigned subtraction so wrap-around is harmless.
type TickSource interface {
	Milliseconds() uint32
}

type systemTicks struct {
	start time.Time
}

// SystemTicks returns a TickSource counting milliseconds since its creation.
func SystemTicks() TickSource {
	return systemTicks{start: time.Now()}
}

func (t systemTicks) Milliseconds() uint32 {
	return uint32(time.Since(t.start).Milliseconds())
}
