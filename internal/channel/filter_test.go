package channel

import (
	"testing"

	"github.com/bloomworks/livebus/internal/message"
)

func TestFilterRules_Types(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterRules
		msg    message.Type
		want   bool
	}{
		{
			name: "empty filter allows everything",
			msg:  message.TypeCompetition,
			want: true,
		},
		{
			name:   "allow list admits listed type",
			filter: FilterRules{AllowedTypes: []message.Type{message.TypeCompetition}},
			msg:    message.TypeCompetition,
			want:   true,
		},
		{
			name:   "allow list rejects unlisted type",
			filter: FilterRules{AllowedTypes: []message.Type{message.TypeCompetition}},
			msg:    message.TypeSeasonal,
			want:   false,
		},
		{
			name:   "block list rejects listed type",
			filter: FilterRules{BlockedTypes: []message.Type{message.TypeMaintenance}},
			msg:    message.TypeMaintenance,
			want:   false,
		},
		{
			name: "allow list overrides block list",
			filter: FilterRules{
				AllowedTypes: []message.Type{message.TypeCompetition},
				BlockedTypes: []message.Type{message.TypeCompetition},
			},
			msg:  message.TypeCompetition,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := message.New(tt.msg, "title", "")
			if got := tt.filter.Allows(msg); got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterRules_Tags(t *testing.T) {
	t.Run("allow list requires at least one tag", func(t *testing.T) {
		f := FilterRules{AllowedTags: []string{"ranked", "featured"}}

		tagged := message.New(message.TypeCompetition, "title", "")
		tagged.AddTag("ranked")
		if !f.Allows(tagged) {
			t.Error("message with allowed tag should pass")
		}

		untagged := message.New(message.TypeCompetition, "title", "")
		if f.Allows(untagged) {
			t.Error("message without any allowed tag should be rejected")
		}
	})

	t.Run("block list rejects tagged message", func(t *testing.T) {
		f := FilterRules{BlockedTags: []string{"internal"}}

		msg := message.New(message.TypeCompetition, "title", "")
		msg.AddTag("internal")
		if f.Allows(msg) {
			t.Error("message with blocked tag should be rejected")
		}
	})

	t.Run("allow list overrides block list", func(t *testing.T) {
		f := FilterRules{
			AllowedTags: []string{"ranked"},
			BlockedTags: []string{"ranked"},
		}

		msg := message.New(message.TypeCompetition, "title", "")
		msg.AddTag("ranked")
		if !f.Allows(msg) {
			t.Error("allow list should take precedence over block list")
		}
	})
}

func TestFilterRules_Scopes(t *testing.T) {
	f := FilterRules{AllowedScopes: []message.Scope{message.ScopeGlobal, message.ScopeRegional}}

	global := message.New(message.TypeCompetition, "title", "")
	global.Scope = message.ScopeGlobal
	if !f.Allows(global) {
		t.Error("global scope should be allowed")
	}

	personal := message.New(message.TypeCompetition, "title", "")
	personal.Scope = message.ScopePersonal
	if f.Allows(personal) {
		t.Error("personal scope should be rejected")
	}
}

func TestFilterRules_AllowsSource(t *testing.T) {
	f := FilterRules{BlockedSources: []string{"banned-producer"}}

	if f.AllowsSource("banned-producer") {
		t.Error("blocked source should be rejected")
	}
	if !f.AllowsSource("other-producer") {
		t.Error("unblocked source should be allowed")
	}
	if !(FilterRules{}).AllowsSource("anyone") {
		t.Error("empty block list should allow all sources")
	}
}
