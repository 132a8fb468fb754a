// Package tassert provides common asserts for tests.
package tassert

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"testing"
)

var (
	fatalities = make(map[string]struct{})
	mu         sync.Mutex
)

func CheckFatal(tb testing.TB, err error) {
	if err == nil {
		return
	}
	mu.Lock()
	if _, ok := fatalities[tb.Name()]; ok {
		mu.Unlock()
		fmt.Printf("--- %s: duplicate CheckFatal\n", tb.Name())
		runtime.Goexit()
	} else {
		fatalities[tb.Name()] = struct{}{}
		mu.Unlock()
		debug.PrintStack()
		tb.Fatal(err.Error())
	}
}

func CheckError(tb testing.TB, err error) {
	if err != nil {
		debug.PrintStack()
		tb.Error(err.Error())
	}
}

func Fatalf(tb testing.TB, cond bool, msg string, args ...any) {
	if !cond {
		debug.PrintStack()
		tb.Fatalf(msg, args...)
	}
}

func Errorf(tb testing.TB, cond bool, msg string, args ...any) {
	if !cond {
		debug.PrintStack()
		tb.Errorf(msg, args...)
	}
}
