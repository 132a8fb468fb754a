// Package debug provides lightweight assertions in the teacher's
// `cmn/debug` idiom: compiled in always, but cheap, since this client has no
// hot per-byte loop that would regress from a bounds/precondition check.
package debug

import "fmt"

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprint(append([]any{"assertion failed: "}, args...)...))
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
