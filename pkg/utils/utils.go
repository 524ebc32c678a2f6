package utils

import (
	"log"
	"runtime/debug"
)

// PanicHandler receives the recovered value and the goroutine stack.
type PanicHandler func(recovered interface{}, stack []byte)

// GoSafe runs fn in a new goroutine. A panic is recovered and handed to
// onPanic, or to the standard logger when onPanic is nil.
func GoSafe(fn func(), onPanic PanicHandler) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if onPanic != nil {
					onPanic(r, stack)
					return
				}
				log.Printf("[Panic Recovered] %v\n%s", r, stack)
			}
		}()
		fn()
	}()
}

func ToPointer[T any](value T) *T {
	return &value
}
