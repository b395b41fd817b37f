package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NamingPolicy selects how the EDM4hep suffix is attached to output file names.
type NamingPolicy int

const (
	// NamingUnderscore appends "_edm4hep" to the stem and uses ".root".
	NamingUnderscore NamingPolicy = iota
	// NamingDotted uses the double extension ".edm4hep.root".
	NamingDotted
)

// Suffix returns the string appended to an output file stem.
func (p NamingPolicy) Suffix() string {
	if p == NamingDotted {
		return ".edm4hep.root"
	}
	return "_edm4hep.root"
}

func (p NamingPolicy) String() string {
	switch p {
	case NamingUnderscore:
		return "underscore"
	case NamingDotted:
		return "dotted"
	}
	return fmt.Sprintf("NamingPolicy(%d)", int(p))
}

// ParseNamingPolicy maps a configuration token to a policy.
func ParseNamingPolicy(s string) (NamingPolicy, error) {
	switch s {
	case "underscore", "":
		return NamingUnderscore, nil
	case "dotted":
		return NamingDotted, nil
	}
	return 0, fmt.Errorf("unknown naming policy %q (want underscore or dotted)", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *NamingPolicy) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	policy, err := ParseNamingPolicy(s)
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p NamingPolicy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}
