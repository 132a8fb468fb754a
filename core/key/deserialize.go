package key

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scality/hdclient-go/codec"
)

// ErrDeserialize is KeySchemeDeserializeError from spec §4.A: raw-key
// parsing failed with one of a fixed set of diagnostic messages. Callers at
// the GET/DELETE boundary wrap it as a ParseError(400).
type ErrDeserialize struct{ msg string }

func (e *ErrDeserialize) Error() string { return e.msg }

func errDeserialize(format string, args ...any) *ErrDeserialize {
	return &ErrDeserialize{msg: fmt.Sprintf(format, args...)}
}

// Deserialize parses a raw key produced by Serialize. expectedServiceID
// rejects keys minted for a different service.
func Deserialize(s string, expectedServiceID int) (*FragmentsLayout, error) {
	parts := strings.Split(s, sectionSep)
	if len(parts) < 6 {
		return nil, errDeserialize("Bad key: no split section")
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil || version != SchemeVersion {
		return nil, errDeserialize("Unknown version %s", parts[0])
	}

	serviceID, err := strconv.Atoi(parts[1])
	if err != nil || serviceID != expectedServiceID {
		return nil, errDeserialize("Unknown serviceId %s", parts[1])
	}

	splitFields := strings.Split(parts[2], subsectionSep)
	if len(splitFields) != 2 {
		return nil, errDeserialize("Bad key: no split section")
	}
	size, err := strconv.ParseInt(splitFields[0], 10, 64)
	if err != nil {
		return nil, errDeserialize("Failed to deserialize split section: %s", err.Error())
	}
	splitSize, err := strconv.ParseInt(splitFields[1], 10, 64)
	if err != nil {
		return nil, errDeserialize("Failed to deserialize split section: %s", err.Error())
	}

	codeFields := strings.Split(parts[3], subsectionSep)
	if len(codeFields) < 2 {
		return nil, errDeserialize("Bad key: no replication policy section")
	}
	var code Code
	var k, m int
	switch codeFields[0] {
	case "CP":
		code = CP
		k, err = strconv.Atoi(codeFields[1])
		if err != nil {
			return nil, errDeserialize("Bad key: no replication policy section")
		}
	case "RS":
		if len(codeFields) != 3 {
			return nil, errDeserialize("Bad key: no replication policy section")
		}
		code = RS
		k, err = strconv.Atoi(codeFields[1])
		if err != nil {
			return nil, errDeserialize("Bad key: no replication policy section")
		}
		m, err = strconv.Atoi(codeFields[2])
		if err != nil {
			return nil, errDeserialize("Bad key: no replication policy section")
		}
	default:
		return nil, errDeserialize("Bad key: no replication policy section")
	}

	if len(parts) < 5 || parts[4] == "" {
		return nil, errDeserialize("Bad key: no ctime section")
	}
	ctime, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, errDeserialize("Bad key: no ctime section")
	}

	if len(parts) < 6 || parts[5] == "" {
		return nil, errDeserialize("Bad key: no rand section")
	}
	rnd, err := strconv.ParseUint(parts[5], 10, 32)
	if err != nil {
		return nil, errDeserialize("Bad key: no rand section")
	}

	locParts := parts[6:]
	nChunks := codec.NChunks(size, splitSize)
	perChunk := k + m
	expected := nChunks * perChunk
	if len(locParts) != expected {
		return nil, errDeserialize("Found %d parts, expected %s", len(locParts), codeSpecRaw(code, k, m))
	}

	l := &FragmentsLayout{
		SchemeVersion: version,
		ServiceID:     serviceID,
		Size:          size,
		SplitSize:     splitSize,
		NChunks:       nChunks,
		Code:          code,
		NDataParts:    k,
		NCodingParts:  m,
		Ctime:         ctime,
		Rand:          uint32(rnd),
		Chunks:        make([]Chunk, nChunks),
	}
	if code == RS {
		l.StripeSize = codec.StripeSize(splitSize, k)
	}

	for i := 0; i < nChunks; i++ {
		base := i * perChunk
		chunk := Chunk{
			Data:   make([]FragmentLocator, k),
			Coding: make([]FragmentLocator, m),
		}
		endOff := l.EndOffset(i)
		for fi := 0; fi < k; fi++ {
			loc, err := parseLoc(locParts[base+fi], fi)
			if err != nil {
				return nil, err
			}
			loc.Key = fragmentKey(serviceID, ctime, uint32(rnd), endOff, fi)
			chunk.Data[fi] = loc
		}
		for fi := 0; fi < m; fi++ {
			gfi := k + fi
			loc, err := parseLoc(locParts[base+k+fi], gfi)
			if err != nil {
				return nil, err
			}
			loc.Key = fragmentKey(serviceID, ctime, uint32(rnd), endOff, gfi)
			chunk.Coding[fi] = loc
		}
		l.Chunks[i] = chunk
	}
	return l, nil
}

func parseLoc(s string, fragmentID int) (FragmentLocator, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return FragmentLocator{}, errDeserialize("Bad key: malformed location %q", s)
	}
	return FragmentLocator{UUID: s[:idx], FragmentID: fragmentID}, nil
}

func codeSpecRaw(code Code, k, m int) string {
	if code == RS {
		return fmt.Sprintf("RS,%d,%d", k, m)
	}
	return fmt.Sprintf("CP,%d", k)
}
