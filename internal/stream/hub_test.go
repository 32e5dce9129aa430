package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decision(id string) model.RiskEscalationDecision {
	return model.RiskEscalationDecision{
		WithdrawalID:   id,
		Escalated:      true,
		FromRiskLevel:  model.RiskLow,
		ToRiskLevel:    model.RiskHigh,
		EscalationType: "LEVEL_ESCALATION_LOW_TO_HIGH",
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub(4)
	a, b := h.Subscribe(), h.Subscribe()
	require.Equal(t, 2, h.Count())

	h.Publish(decision("w-1"))

	for _, sub := range []*Subscription{a, b} {
		var ev Event
		require.NoError(t, json.Unmarshal(<-sub.C, &ev))
		assert.Equal(t, EventEscalation, ev.Type)
		assert.Equal(t, "w-1", ev.Decision.WithdrawalID)
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub(1)
	slow := h.Subscribe()

	h.Publish(decision("w-1"))
	h.Publish(decision("w-2"))

	assert.Equal(t, 0, h.Count())
	_, ok := <-slow.C
	assert.True(t, ok)
	_, ok = <-slow.C
	assert.False(t, ok, "channel closed after drop")

	// dropping twice is harmless
	h.Unsubscribe(slow)
}

func TestHubClose(t *testing.T) {
	h := NewHub(1)
	sub := h.Subscribe()
	h.Close()
	_, ok := <-sub.C
	assert.False(t, ok)

	late := h.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok)
}

func TestHubServeWS(t *testing.T) {
	h := NewHub(4)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)
	h.Publish(decision("w-9"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "w-9", ev.Decision.WithdrawalID)
}
