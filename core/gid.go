package core

import "runtime"

// CurrentGoroutineID returns the runtime ID of the calling goroutine.
//
// Goroutines have no first-class handles, so invoker confinement and worker
// membership are enforced by comparing these IDs. The ID is parsed from the
// first line of the goroutine's stack header ("goroutine 123 [running]:").
// This costs a runtime.Stack call, which is acceptable here: it runs once
// per batch on the invoker and once per worker startup, never per task.
func CurrentGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]

	var id uint64
	for i := len("goroutine "); i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			break
		}
		id = id*10 + uint64(b[i]-'0')
	}
	return id
}
