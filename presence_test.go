package tristate_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/reoring/tristate"
)

type presenceDoc struct {
	Name   tristate.Value[string]           `json:"name"`
	Avatar tristate.Value[*string]          `json:"avatar"`
	Tags   map[string]tristate.Value[[]int] `json:"tags"`
	Sub    *presenceSub                     `json:"sub"`
	Skip   tristate.Value[int]              `json:"-"`
}

type presenceSub struct {
	On tristate.Value[bool] `json:"on"`
}

func TestCollectPresence(t *testing.T) {
	w := tristate.NewWalker(tristate.WalkerOpt{TagKey: "json"})
	doc := presenceDoc{
		Avatar: tristate.Of[*string](nil),
		Tags:   map[string]tristate.Value[[]int]{"a/b": tristate.Of([]int{1}), "none": {}},
		Sub:    &presenceSub{On: tristate.Of(false)},
		Skip:   tristate.Of(1),
	}

	pm, err := tristate.CollectPresence(w, &doc)
	require.NoError(t, err)

	want := tristate.PresenceMap{
		"/":          tristate.PresenceSeen,
		"/avatar":    tristate.PresenceSeen | tristate.PresenceWasNull,
		"/tags/a~1b": tristate.PresenceSeen,
		"/sub/on":    tristate.PresenceSeen,
	}
	if diff := cmp.Diff(want, pm); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}

	filtered := pm.Filter([]string{"/sub", "/avatar"}, []string{"/avatar"})
	if diff := cmp.Diff(tristate.PresenceMap{"/sub/on": tristate.PresenceSeen}, filtered); diff != "" {
		t.Errorf("filtered mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectPresence_TopLevelValue(t *testing.T) {
	w := tristate.NewWalker(tristate.WalkerOpt{})

	pm, err := tristate.CollectPresence(w, tristate.Of[any](nil))
	require.NoError(t, err)
	require.True(t, pm.Seen("/"))
	require.True(t, pm.WasNull("/"))

	pm, err = tristate.CollectPresence(w, nil)
	require.NoError(t, err)
	require.Equal(t, tristate.PresenceMap{"/": tristate.PresenceSeen}, pm)
}
