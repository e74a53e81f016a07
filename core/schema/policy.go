package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Channel identifies a generation target.
type Channel string

const (
	// ChannelAPI is the REST route channel.
	ChannelAPI Channel = "api"

	// ChannelCLI is the command-line channel.
	ChannelCLI Channel = "cli"

	// ChannelTool is the AI tool-calling channel.
	ChannelTool Channel = "tool"
)

// AllChannels returns every generation channel.
func AllChannels() []Channel {
	return []Channel{ChannelAPI, ChannelCLI, ChannelTool}
}

// Channels holds the per-channel access policies of an entity.
// The zero value exposes the default actions on every channel.
type Channels struct {
	// API controls REST route generation.
	API AccessPolicy `yaml:"api,omitempty" json:"api"`

	// CLI controls command generation.
	CLI AccessPolicy `yaml:"cli,omitempty" json:"cli"`

	// Tool controls AI tool descriptor generation.
	Tool AccessPolicy `yaml:"tool,omitempty" json:"tool"`
}

// For returns the policy for the given channel.
func (c Channels) For(ch Channel) AccessPolicy {
	switch ch {
	case ChannelCLI:
		return c.CLI
	case ChannelTool:
		return c.Tool
	default:
		return c.API
	}
}

// PolicyMode is the shape of an access policy.
type PolicyMode int

const (
	// PolicyDefaults (boolean true, and the zero value) exposes exactly
	// the default actions. Custom operations are never matched.
	PolicyDefaults PolicyMode = iota

	// PolicyNone (boolean false) exposes nothing.
	PolicyNone

	// PolicyFiltered is the structured include/exclude shape.
	PolicyFiltered
)

// String returns the policy mode name.
func (m PolicyMode) String() string {
	switch m {
	case PolicyNone:
		return "none"
	case PolicyFiltered:
		return "filtered"
	default:
		return "defaults"
	}
}

// MarshalJSON renders the mode as its name.
func (m PolicyMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// AccessPolicy controls which actions a channel exposes.
//
// In YAML a policy is written as a boolean or a mapping:
//
//	api: true                      # default actions only
//	cli: false                     # nothing
//	tool:
//	  include: [list, get, send]   # only these
//	  exclude: [get]               # exclude wins over include
type AccessPolicy struct {
	// Mode selects the policy shape.
	Mode PolicyMode `json:"mode"`

	// Include lists actions exposed under PolicyFiltered. Empty means
	// the default actions are implicitly available.
	Include []string `json:"include,omitempty"`

	// Exclude lists actions withheld under PolicyFiltered.
	// Exclusion wins over inclusion.
	Exclude []string `json:"exclude,omitempty"`
}

// Allows reports whether the policy exposes the named action.
// The evaluation order is significant:
//
//  1. PolicyNone denies everything.
//  2. PolicyDefaults allows exactly the default actions; custom
//     operations require explicit inclusion and never match here.
//  3. PolicyFiltered: with a non-empty include list the action must
//     appear in it; with an empty include list only default actions
//     are implicitly available. An excluded action is always denied,
//     even when included.
//
// Unknown action names simply never match; policies that name
// nonexistent operations are rejected by ValidatePolicy instead.
func (p AccessPolicy) Allows(action string) bool {
	switch p.Mode {
	case PolicyNone:
		return false
	case PolicyDefaults:
		return IsDefaultAction(action)
	}

	if len(p.Include) > 0 {
		if !containsString(p.Include, action) {
			return false
		}
	} else if !IsDefaultAction(action) {
		return false
	}

	if containsString(p.Exclude, action) {
		return false
	}

	return true
}

// UnmarshalYAML accepts the boolean and structured policy shapes.
func (p *AccessPolicy) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := value.Decode(&enabled); err != nil {
			return fmt.Errorf("policy must be a boolean or an include/exclude mapping: %w", err)
		}
		if enabled {
			p.Mode = PolicyDefaults
		} else {
			p.Mode = PolicyNone
		}
		p.Include = nil
		p.Exclude = nil
		return nil

	case yaml.MappingNode:
		var filtered struct {
			Include []string `yaml:"include"`
			Exclude []string `yaml:"exclude"`
		}
		if err := value.Decode(&filtered); err != nil {
			return fmt.Errorf("decode policy: %w", err)
		}
		p.Mode = PolicyFiltered
		p.Include = filtered.Include
		p.Exclude = filtered.Exclude
		return nil

	default:
		return fmt.Errorf("policy must be a boolean or an include/exclude mapping")
	}
}

// MarshalYAML renders the policy in its declared shape.
func (p AccessPolicy) MarshalYAML() (any, error) {
	switch p.Mode {
	case PolicyNone:
		return false, nil
	case PolicyFiltered:
		out := map[string][]string{}
		if len(p.Include) > 0 {
			out["include"] = p.Include
		}
		if len(p.Exclude) > 0 {
			out["exclude"] = p.Exclude
		}
		return out, nil
	default:
		return true, nil
	}
}

// ValidatePolicy checks an entity's policy for one channel. Every name
// in include and exclude must be a default action or a declared public
// operation. Violations are reported as *InvalidPolicyError.
func ValidatePolicy(e Entity, ch Channel) error {
	p := e.Access.For(ch)
	if p.Mode != PolicyFiltered {
		return nil
	}

	check := func(names []string) error {
		for _, name := range names {
			if IsDefaultAction(name) {
				continue
			}
			op, ok := e.Operation(name)
			if !ok {
				return &InvalidPolicyError{
					Entity:  e.Name,
					Channel: ch,
					Name:    name,
					Reason:  "no such operation",
				}
			}
			if !op.Public {
				return &InvalidPolicyError{
					Entity:  e.Name,
					Channel: ch,
					Name:    name,
					Reason:  "operation is not public",
				}
			}
		}
		return nil
	}

	if err := check(p.Include); err != nil {
		return err
	}
	return check(p.Exclude)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
