//go:build !linux

package clock

import "time"

const wallSource = "monotonic"

var processStart = time.Now()

func wallNanos() int64 {
	return int64(time.Since(processStart))
}
