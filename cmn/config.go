package cmn

import (
	"regexp"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// NodeConfig is the wire/config-file shape of one node in the placement
// topology tree (spec §3 "Topology (policy)"). A leaf has no Components; an
// inner container has a non-empty Components list and optionally overrides
// FType/Affinity for its subtree.
type NodeConfig struct {
	Name         string       `json:"name"`
	StaticWeight float64      `json:"static_weight"`
	FType        string       `json:"ftype,omitempty"` // "data" | "coding" | "both"
	Affinity     string       `json:"affinity,omitempty"`
	Components   []NodeConfig `json:"components,omitempty"`
}

func (n *NodeConfig) IsLeaf() bool { return len(n.Components) == 0 }

// CodeSpec is one row of the ordered codes table (spec §3 "Codes table").
type CodeSpec struct {
	Pattern     string `json:"pattern"`
	Type        string `json:"type"` // "CP" | "RS"
	DataParts   int    `json:"data_parts"`
	CodingParts int    `json:"coding_parts"`

	compiled *regexp.Regexp
}

func (cs *CodeSpec) Match(s string) bool {
	if cs.compiled == nil {
		cs.compiled = regexp.MustCompile(cs.Pattern)
	}
	return cs.compiled.MatchString(s)
}

type PolicyConfig struct {
	Cluster      NodeConfig `json:"cluster"`
	MinSplitSize int64      `json:"min_split_size"`
}

type ErrorAgentConfig struct {
	KafkaBrokers string `json:"kafka_brokers"`
}

// EndpointConfig resolves a topology leaf's uuid (== its node name) to a
// dialable address. Every leaf named in policy.cluster must have a matching
// entry here for the client to be able to reach it.
type EndpointConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type Config struct {
	Policy           PolicyConfig              `json:"policy"`
	Codes            []CodeSpec                `json:"codes"`
	RequestTimeoutMs int64                     `json:"request_timeout_ms"`
	ErrorAgent       ErrorAgentConfig          `json:"error_agent"`
	Endpoints        map[string]EndpointConfig `json:"endpoints"`
}

// LoadConfig decodes and validates a Config from JSON bytes.
func LoadConfig(data []byte) (*Config, error) {
	var c Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &c); err != nil {
		return nil, NewErrInvalidConfig("<root>", string(data), err.Error())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate surfaces InvalidConfigError per spec §6, table of validated keys.
func (c *Config) Validate() error {
	if c.Policy.MinSplitSize < 0 {
		return NewErrInvalidConfig("policy.minSplitSize", strconv.FormatInt(c.Policy.MinSplitSize, 10), "must be >= 0")
	}
	if c.RequestTimeoutMs < 0 {
		return NewErrInvalidConfig("requestTimeoutMs", strconv.FormatInt(c.RequestTimeoutMs, 10), "must be >= 0")
	}
	if err := validateNode(&c.Policy.Cluster, "data"); err != nil {
		return err
	}
	if len(c.Codes) == 0 {
		return NewErrInvalidConfig("codes", "[]", "must contain at least one code spec")
	}
	for i := range c.Codes {
		cs := &c.Codes[i]
		switch cs.Type {
		case "CP":
			if cs.CodingParts != 0 {
				return NewErrInvalidConfig("codes[].codingParts", strconv.Itoa(cs.CodingParts), "CP requires codingParts = 0")
			}
			if cs.DataParts < 1 {
				return NewErrInvalidConfig("codes[].dataParts", strconv.Itoa(cs.DataParts), "must be >= 1")
			}
		case "RS":
			if cs.CodingParts < 1 {
				return NewErrInvalidConfig("codes[].codingParts", strconv.Itoa(cs.CodingParts), "RS requires codingParts >= 1")
			}
			if cs.DataParts < 1 {
				return NewErrInvalidConfig("codes[].dataParts", strconv.Itoa(cs.DataParts), "must be >= 1")
			}
		default:
			return NewErrInvalidConfig("codes[].type", cs.Type, `must be "CP" or "RS"`)
		}
		re, err := regexp.Compile(cs.Pattern)
		if err != nil {
			return NewErrInvalidConfig("codes[].pattern", cs.Pattern, err.Error())
		}
		cs.compiled = re
	}
	return nil
}

func validateNode(n *NodeConfig, inheritedFType string) error {
	ftype := n.FType
	if ftype == "" {
		ftype = inheritedFType
	}
	switch ftype {
	case "data", "coding", "both":
	default:
		return NewErrInvalidConfig("policy.cluster..ftype", ftype, `must be "data", "coding", or "both"`)
	}
	if n.IsLeaf() {
		switch n.Affinity {
		case "", "hard", "soft":
		default:
			return NewErrInvalidConfig("policy.cluster..affinity", n.Affinity, `must be "hard" or "soft"`)
		}
		if n.StaticWeight < 0 {
			return NewErrInvalidConfig("policy.cluster..staticWeight", strconv.FormatFloat(n.StaticWeight, 'f', -1, 64), "must be >= 0")
		}
		if n.Name == "" {
			return NewErrInvalidConfig("policy.cluster..name", "", "leaf must have a non-empty name")
		}
		return nil
	}
	for i := range n.Components {
		if err := validateNode(&n.Components[i], ftype); err != nil {
			return err
		}
	}
	return nil
}

