//go:build debug

package clock

import "fmt"

func assertMonotonic(delta int64) {
	panic(fmt.Sprintf("clock: source went backwards by %d ticks", -delta))
}
