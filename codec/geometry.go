package codec

import "github.com/scality/hdclient-go/cmn/cos"

// GetSplitSize implements spec §4.C: the per-object chunk and (for RS)
// stripe size. When size <= minSplit, splitSize is exactly size (no
// padding, no splitting); otherwise splitSize is minSplit aligned up to
// DATA_ALIGN, floored at DATA_ALIGN itself.
func GetSplitSize(minSplit, size int64, isRS bool, k int) (splitSize, stripeSize int64) {
	if size > minSplit {
		splitSize = cos.Align(minSplit, cos.DataAlign)
		if splitSize < cos.DataAlign {
			splitSize = cos.DataAlign
		}
	} else {
		splitSize = size
	}
	if isRS && k > 0 {
		stripeSize = StripeSize(splitSize, k)
	}
	return splitSize, stripeSize
}

// StripeSize returns the smallest multiple of DATA_ALIGN such that
// k*stripeSize >= splitSize.
func StripeSize(splitSize int64, k int) int64 {
	if k <= 0 {
		return cos.Align(splitSize, cos.DataAlign)
	}
	return cos.Align(cos.CeilDiv(splitSize, int64(k)), cos.DataAlign)
}

// NChunks returns the number of sequential chunks a size-byte object splits
// into given splitSize.
func NChunks(size, splitSize int64) int {
	if size <= splitSize {
		return 1
	}
	return int(cos.CeilDiv(size, splitSize))
}
