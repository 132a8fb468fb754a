package orchestrate

import "github.com/scality/hdclient-go/cmn"

func isTimeout(err error) bool {
	_, ok := err.(*cmn.ErrTimeout)
	return ok
}

func errCode(err error) int {
	if c, ok := err.(cmn.Coder); ok {
		return c.Code()
	}
	return 500
}

// worstFragmentErr returns the fragment error whose code is the worst
// (cmn.WorstCode) among a chunk's non-nil fragment errors, or nil if the
// chunk was entirely healthy.
func worstFragmentErr(cs *chunkStatus) error {
	codes := make([]int, 0, len(cs.outcomes))
	errs := make([]error, 0, len(cs.outcomes))
	for _, o := range cs.outcomes {
		if o.err != nil {
			codes = append(codes, errCode(o.err))
			errs = append(errs, o.err)
		}
	}
	return pickWorst(codes, errs)
}

// worstOpErr returns the single classified error carrying the worst code
// observed across every chunk's fragments (spec §7 "Propagation").
func worstOpErr(o *opCtx) error {
	var codes []int
	var errs []error
	for _, cs := range o.chunks {
		for _, f := range cs.outcomes {
			if f.err != nil {
				codes = append(codes, errCode(f.err))
				errs = append(errs, f.err)
			}
		}
	}
	return pickWorst(codes, errs)
}

func pickWorst(codes []int, errs []error) error {
	if len(codes) == 0 {
		return nil
	}
	worst := cmn.WorstCode(codes...)
	for i, c := range codes {
		if c == worst {
			return errs[i]
		}
	}
	return errs[0]
}
