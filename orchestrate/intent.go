package orchestrate

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/scality/hdclient-go/core/key"
	"github.com/scality/hdclient-go/erroragent"
)

// intentMessage is the JSON body of one repair/delete/check message, per
// spec §6 "Error-agent interface": { rawKey, fragments: [[chunk, frag]...], version }.
type intentMessage struct {
	RawKey    string  `json:"rawKey"`
	Fragments [][]int `json:"fragments"`
	Version   string  `json:"version,omitempty"`
}

func marshalIntent(rawKey, version string, fragments [][]int) string {
	msg := intentMessage{RawKey: rawKey, Fragments: fragments, Version: version}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(msg)
	if err != nil {
		// fragments/rawKey are always JSON-encodable plain data; a marshal
		// failure here would indicate a programming error, not bad input.
		panic(err)
	}
	return string(b)
}

// allFragments lists every [chunk, fragment] pair in layout, data then
// coding per chunk, for the conservative "delete everything written under
// this rawKey" intent.
func allFragments(l *key.FragmentsLayout) [][]int {
	var out [][]int
	for ci, c := range l.Chunks {
		for _, f := range c.Data {
			out = append(out, []int{ci, f.FragmentID})
		}
		for _, f := range c.Coding {
			out = append(out, []int{ci, f.FragmentID})
		}
	}
	return out
}

func sendIntent(agent erroragent.Agent, topic erroragent.Topic, rawKey, version string, fragments [][]int) error {
	if len(fragments) == 0 {
		return nil
	}
	msg := marshalIntent(rawKey, version, fragments)
	return agent.Send([]erroragent.Record{{Topic: topic, Messages: []string{msg}}})
}
