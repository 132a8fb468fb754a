// Package cmn provides common constants, types, and utilities for the
// hyperdrive client: the error taxonomy, configuration surface, and the
// validated policy/codes model shared by every other package.
package cmn

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error taxonomy per spec §7. Every classified error carries a numeric
// Code() so the orchestrator can pick the "worst" one (5xx over 4xx, 504
// folded in with 5xx) without a type switch at every call site.

type (
	ErrParse struct{ msg string }

	ErrCorruptedData struct {
		ActualCRC, ExpectedCRC uint32
		ChunkID, FragmentID    int
	}

	ErrConfig struct{ msg string }

	ErrInvalidConfig struct {
		Field, Value, Message string
	}

	ErrTimeout struct{ where string }

	ErrHTTP struct{ StatusCode int }

	ErrGET    struct{ desc string }
	ErrPUT    struct{ desc string }
	ErrDELETE struct{ desc string }

	ErrInternal struct{ msg string }
)

func (e *ErrParse) Error() string { return "ParseError: " + e.msg }
func (*ErrParse) Code() int       { return 400 }

func NewErrParse(format string, args ...any) *ErrParse {
	return &ErrParse{msg: fmt.Sprintf(format, args...)}
}

func (e *ErrCorruptedData) Error() string {
	return fmt.Sprintf("CorruptedData: bad CRC chunk=%d fragment=%d actual=0x%08x expected=0x%08x",
		e.ChunkID, e.FragmentID, e.ActualCRC, e.ExpectedCRC)
}
func (*ErrCorruptedData) Code() int { return 422 }

func NewErrCorruptedData(actual, expected uint32, chunkID, fragmentID int) *ErrCorruptedData {
	return &ErrCorruptedData{ActualCRC: actual, ExpectedCRC: expected, ChunkID: chunkID, FragmentID: fragmentID}
}

func (e *ErrConfig) Error() string { return "ConfigError: " + e.msg }
func (*ErrConfig) Code() int       { return 422 }

func NewErrConfig(format string, args ...any) *ErrConfig {
	return &ErrConfig{msg: fmt.Sprintf(format, args...)}
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("InvalidConfigError: field %q value %q: %s", e.Field, e.Value, e.Message)
}

func NewErrInvalidConfig(field, value, message string) *ErrInvalidConfig {
	return &ErrInvalidConfig{Field: field, Value: value, Message: message}
}

func (e *ErrTimeout) Error() string { return "TimeoutError: " + e.where }
func (*ErrTimeout) Code() int       { return 504 }

func NewErrTimeout(where string) *ErrTimeout { return &ErrTimeout{where: where} }

func (e *ErrHTTP) Error() string { return fmt.Sprintf("HTTPError: %d", e.StatusCode) }
func (e *ErrHTTP) Code() int     { return e.StatusCode }

func NewErrHTTP(statusCode int) *ErrHTTP { return &ErrHTTP{StatusCode: statusCode} }

func (e *ErrGET) Error() string { return "GETError: " + e.desc }
func (*ErrGET) Code() int       { return 500 }

func NewErrGET(desc string) *ErrGET { return &ErrGET{desc: desc} }

func (e *ErrPUT) Error() string { return "PUTError: " + e.desc }
func (*ErrPUT) Code() int       { return 500 }

func NewErrPUT(desc string) *ErrPUT { return &ErrPUT{desc: desc} }

func (e *ErrDELETE) Error() string { return "DELETEError: " + e.desc }
func (*ErrDELETE) Code() int       { return 500 }

func NewErrDELETE(desc string) *ErrDELETE { return &ErrDELETE{desc: desc} }

func (e *ErrInternal) Error() string { return "InternalError: " + e.msg }
func (*ErrInternal) Code() int       { return 500 }

func NewErrInternal(format string, args ...any) *ErrInternal {
	return &ErrInternal{msg: fmt.Sprintf(format, args...)}
}

// Coder is implemented by every error in the taxonomy above.
type Coder interface {
	error
	Code() int
}

// WorstCode picks the "worst" HTTP-ish status among observed codes,
// preferring 5xx over 4xx and folding 504 in with 5xx, per spec §4.E.2.7 /
// §4.E.3.4 / §7 "Propagation".
func WorstCode(codes ...int) int {
	worst := 0
	worstRank := -1
	rank := func(c int) int {
		switch {
		case c >= 500:
			return 2
		case c == 504:
			return 2
		case c >= 400:
			return 1
		default:
			return 0
		}
	}
	for _, c := range codes {
		if r := rank(c); r > worstRank || (r == worstRank && c > worst) {
			worst, worstRank = c, r
		}
	}
	return worst
}

// Wrap annotates err with msg using github.com/pkg/errors, preserving the
// original error for errors.As/Is the way cmn/cos/err.go wraps syscall
// errors in the teacher.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
