package channel

import "github.com/bloomworks/livebus/internal/message"

// FilterRules decide which messages a channel admits. Allow-lists take
// precedence over block-lists: when an allow-list is non-empty its block
// counterpart is ignored for that dimension.
type FilterRules struct {
	// AllowedTypes, when non-empty, restricts the channel to these types.
	AllowedTypes []message.Type `mapstructure:"allowed_types" json:"allowed_types,omitempty"`

	// BlockedTypes rejects these types. Ignored when AllowedTypes is set.
	BlockedTypes []message.Type `mapstructure:"blocked_types" json:"blocked_types,omitempty"`

	// AllowedTags, when non-empty, requires at least one matching tag.
	AllowedTags []string `mapstructure:"allowed_tags" json:"allowed_tags,omitempty"`

	// BlockedTags rejects messages carrying any of these tags. Ignored
	// when AllowedTags is set.
	BlockedTags []string `mapstructure:"blocked_tags" json:"blocked_tags,omitempty"`

	// AllowedScopes, when non-empty, restricts the channel to these scopes.
	AllowedScopes []message.Scope `mapstructure:"allowed_scopes" json:"allowed_scopes,omitempty"`

	// BlockedSources rejects messages from these producer ids.
	BlockedSources []string `mapstructure:"blocked_sources" json:"blocked_sources,omitempty"`
}

// Allows reports whether the message passes the type, tag, and scope rules.
// Source authorization is checked separately via AllowsSource.
func (f FilterRules) Allows(msg *message.Message) bool {
	if len(f.AllowedTypes) > 0 {
		if !containsType(f.AllowedTypes, msg.Type) {
			return false
		}
	} else if containsType(f.BlockedTypes, msg.Type) {
		return false
	}

	if len(f.AllowedTags) > 0 {
		if !hasAnyTag(msg, f.AllowedTags) {
			return false
		}
	} else if hasAnyTag(msg, f.BlockedTags) {
		return false
	}

	if len(f.AllowedScopes) > 0 && !containsScope(f.AllowedScopes, msg.Scope) {
		return false
	}

	return true
}

// AllowsSource reports whether the producer id is authorized to raise on
// this channel.
func (f FilterRules) AllowsSource(source string) bool {
	for _, blocked := range f.BlockedSources {
		if blocked == source {
			return false
		}
	}
	return true
}

func containsType(types []message.Type, t message.Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsScope(scopes []message.Scope, s message.Scope) bool {
	for _, candidate := range scopes {
		if candidate == s {
			return true
		}
	}
	return false
}

func hasAnyTag(msg *message.Message, tags []string) bool {
	for _, tag := range tags {
		if msg.HasTag(tag) {
			return true
		}
	}
	return false
}
