// Package nlog is a thin leveled logger used across the client, in the
// naming convention of the teacher's own `nlog` package: Infoln/Warningln/
// Errorln write through the standard logger with a level prefix.
package nlog

import (
	"fmt"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

func Infoln(v ...any)    { std.Output(2, "I "+fmt.Sprintln(v...)) }
func Warningln(v ...any) { std.Output(2, "W "+fmt.Sprintln(v...)) }
func Errorln(v ...any)   { std.Output(2, "E "+fmt.Sprintln(v...)) }

func InfoDepth(depth int, v ...any)  { std.Output(depth+2, "I "+fmt.Sprintln(v...)) }
func ErrorDepth(depth int, v ...any) { std.Output(depth+2, "E "+fmt.Sprintln(v...)) }

func WarningDepth(depth int, v ...any) { std.Output(depth+2, "W "+fmt.Sprintln(v...)) }

func Infof(format string, v ...any)  { std.Output(2, "I "+fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { std.Output(2, "E "+fmt.Sprintf(format, v...)) }

// Rom gates verbose logging by level and module, mirroring cmn.Rom.V() in
// the teacher (transport/base.go) without the config-reload machinery this
// client doesn't need.
type rom struct {
	level int
}

var Rom = &rom{}

func (r *rom) SetLevel(level int) { r.level = level }
func (r *rom) V(level int, _ string) bool { return r.level >= level }
