package key

import (
	"strconv"
	"strings"
)

const (
	sectionSep    = "#"
	subsectionSep = ","
)

// Serialize produces the ASCII, round-trippable raw key for a layout:
//
//	v#serviceId#size,splitSize#codeSpec#ctime#rand#loc0#loc1#...
//
// codeSpec is "CP,k" or "RS,k,m". Locations are ordered chunk-major, then
// data-then-coding, each rendered "uuid:fragmentId".
func Serialize(l *FragmentsLayout) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(l.SchemeVersion))
	b.WriteString(sectionSep)
	b.WriteString(strconv.Itoa(l.ServiceID))
	b.WriteString(sectionSep)
	b.WriteString(strconv.FormatInt(l.Size, 10))
	b.WriteString(subsectionSep)
	b.WriteString(strconv.FormatInt(l.SplitSize, 10))
	b.WriteString(sectionSep)
	b.WriteString(codeSpecString(l))
	b.WriteString(sectionSep)
	b.WriteString(strconv.FormatInt(l.Ctime, 10))
	b.WriteString(sectionSep)
	b.WriteString(strconv.FormatUint(uint64(l.Rand), 10))

	for _, chunk := range l.Chunks {
		for _, loc := range chunk.Data {
			b.WriteString(sectionSep)
			b.WriteString(locString(loc))
		}
		for _, loc := range chunk.Coding {
			b.WriteString(sectionSep)
			b.WriteString(locString(loc))
		}
	}
	return b.String()
}

func codeSpecString(l *FragmentsLayout) string {
	if l.Code == RS {
		return "RS" + subsectionSep + strconv.Itoa(l.NDataParts) + subsectionSep + strconv.Itoa(l.NCodingParts)
	}
	return "CP" + subsectionSep + strconv.Itoa(l.NDataParts)
}

func locString(loc FragmentLocator) string {
	return loc.UUID + ":" + strconv.Itoa(loc.FragmentID)
}
