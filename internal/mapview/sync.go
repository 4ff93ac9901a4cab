package mapview

import (
	"sync/atomic"

	"github.com/golang/geo/s2"
)

// Movable is a view that reports and accepts center/zoom changes.
type Movable interface {
	SetView(center s2.LatLng, zoom float64)
	OnMove(fn MoveFunc)
}

// Sync links two views so moving either one moves the other. A re-entrancy
// guard stops the echo from the follower bouncing back to the leader.
func Sync(a, b Movable) {
	var syncing atomic.Bool
	follow := func(target Movable) MoveFunc {
		return func(center s2.LatLng, zoom float64) {
			if !syncing.CompareAndSwap(false, true) {
				return
			}
			defer syncing.Store(false)
			target.SetView(center, zoom)
		}
	}
	a.OnMove(follow(b))
	b.OnMove(follow(a))
}
