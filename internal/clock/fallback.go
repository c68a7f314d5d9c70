//go:build !amd64 && !arm64

package clock

var std Clock = NewMonotonic()
