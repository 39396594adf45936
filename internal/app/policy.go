package app

import "github.com/dkeye/Huddle/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConn
)

// Policy decides what to do with a connection whose send buffer is full.
// dropped counts consecutive frames lost on that connection, this one
// included.
type Policy interface {
	OnBackPressure(conn domain.ConnID, dropped int) BackpressureAction
}

// SimplePolicy drops frames until MaxDrops in a row, then kicks.
type SimplePolicy struct {
	MaxDrops int
}

func (p SimplePolicy) OnBackPressure(_ domain.ConnID, dropped int) BackpressureAction {
	if p.MaxDrops > 0 && dropped >= p.MaxDrops {
		return KickConn
	}
	return DropFrame
}
