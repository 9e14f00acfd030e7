package wallpanel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ServiceData
	}{
		{"empty", "", ServiceData{}},
		{"whitespace", "  \n", ServiceData{}},
		{"single id", `{"entity_id":"wallpanel.hall"}`, ServiceData{EntityID: EntityIDs{"wallpanel.hall"}}},
		{"empty id", `{"entity_id":""}`, ServiceData{}},
		{"null id", `{"entity_id":null}`, ServiceData{}},
		{"id list", `{"entity_id":["wallpanel.a","wallpanel.b"]}`, ServiceData{EntityID: EntityIDs{"wallpanel.a", "wallpanel.b"}}},
		{"comma separated", `{"entity_id":"wallpanel.hall, wallpanel.kitchen"}`, ServiceData{EntityID: EntityIDs{"wallpanel.hall", "wallpanel.kitchen"}}},
		{"mixed case", `{"entity_id":"WallPanel.Hall"}`, ServiceData{EntityID: EntityIDs{"wallpanel.hall"}}},
		{"list normalized", `{"entity_id":[" WallPanel.A ",""]}`, ServiceData{EntityID: EntityIDs{"wallpanel.a"}}},
		{"message", `{"message":"hello"}`, ServiceData{Message: "hello"}},
		{"url", `{"url":"http://x/a.mp3"}`, ServiceData{URL: "http://x/a.mp3"}},
		{"brightness", `{"brightness":0}`, ServiceData{Brightness: intPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServiceData([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseServiceDataInvalid(t *testing.T) {
	for _, body := range []string{`{`, `{"entity_id":5}`, `{"brightness":"high"}`} {
		_, err := ParseServiceData([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidCall, body)
	}
}

func TestServiceDataCall(t *testing.T) {
	data := ServiceData{EntityID: EntityIDs{"wallpanel.hall"}, Message: "hi"}
	call := data.Call(ActionSay)

	assert.Equal(t, ActionSay, call.Action)
	assert.Equal(t, []string{"wallpanel.hall"}, call.TargetIDs)
	assert.Equal(t, "hi", call.Message)
	assert.NoError(t, call.Validate())
}

func TestServiceDataRoutesNormalizedIDs(t *testing.T) {
	f := newRouterFixture(t, "Hall", "Kitchen", "Porch")

	for _, body := range []string{
		`{"entity_id":"wallpanel.hall, wallpanel.kitchen","message":"hi"}`,
		`{"entity_id":["WallPanel.Hall","WALLPANEL.KITCHEN"],"message":"hi"}`,
	} {
		data, err := ParseServiceData([]byte(body))
		require.NoError(t, err)

		results, err := f.router.Route(context.Background(), data.Call(ActionSay))
		require.NoError(t, err)
		require.Len(t, results, 2, body)
		assert.Equal(t, "wallpanel.hall", results[0].DeviceID)
		assert.Equal(t, "wallpanel.kitchen", results[1].DeviceID)
	}
}
