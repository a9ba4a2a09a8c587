package lifecycle

import (
	"bytes"
	"runtime"
	"strconv"
)

// enterSequence marks the calling goroutine as part of the running
// sequence until the returned func is called.
func (c *Coordinator) enterSequence() func() {
	id := goroutineID()
	c.sequenceGoroutines.Store(id, struct{}{})
	return func() {
		c.sequenceGoroutines.Delete(id)
	}
}

func (c *Coordinator) inSequence() bool {
	_, ok := c.sequenceGoroutines.Load(goroutineID())
	return ok
}

// goroutineID parses the id from the "goroutine N [status]:" stack header.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}
