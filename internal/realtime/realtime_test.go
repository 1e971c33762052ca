package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/slots"
)

var screens = []string{"tv-1", "tv-2", "tv-3", "tv-4"}

func TestRedisChannel_Publish(t *testing.T) {
	client, mock := redismock.NewClientMock()
	ch := NewRedisChannel(client, "screen:update")
	ch.origin = "instance-a"

	sentAt := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	update := model.ScreenUpdate{ScreenID: "tv-1", SentAt: sentAt}

	expected := update
	expected.Origin = "instance-a"
	data, err := json.Marshal(expected)
	require.NoError(t, err)
	mock.ExpectPublish("screen:update", data).SetVal(1)

	require.NoError(t, ch.Publish(context.Background(), update))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChannel_Decode(t *testing.T) {
	client, _ := redismock.NewClientMock()
	ch := NewRedisChannel(client, "screen:update")
	ch.origin = "instance-a"

	t.Run("assign", func(t *testing.T) {
		ev, kind, err := ch.decode([]byte(`{"screen_id":"tv-2","payload":{"id":"tv-2","customer_name":"Budi","service":"Carmat","is_active":true},"origin":"instance-b","sent_at":"2025-01-01T08:00:00Z"}`))
		require.NoError(t, err)
		require.Equal(t, inboundEvent, kind)
		assert.Equal(t, slots.KindAssign, ev.Kind)
		assert.Equal(t, "tv-2", ev.ScreenID)
		assert.Equal(t, "Budi", ev.Record.CustomerName)
		assert.Equal(t, slots.SourceRemote, ev.Source)
		assert.Equal(t, time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), ev.At)
	})

	t.Run("null payload clears", func(t *testing.T) {
		ev, kind, err := ch.decode([]byte(`{"screen_id":"tv-3","payload":null}`))
		require.NoError(t, err)
		require.Equal(t, inboundEvent, kind)
		assert.Equal(t, slots.KindRemove, ev.Kind)
		assert.Equal(t, "tv-3", ev.ScreenID)
		assert.False(t, ev.At.IsZero())
	})

	t.Run("inactive payload clears", func(t *testing.T) {
		ev, kind, err := ch.decode([]byte(`{"payload":{"id":"tv-4","customer_name":"","is_active":false}}`))
		require.NoError(t, err)
		require.Equal(t, inboundEvent, kind)
		assert.Equal(t, slots.KindRemove, ev.Kind)
		assert.Equal(t, "tv-4", ev.ScreenID)
	})

	t.Run("own messages are skipped", func(t *testing.T) {
		_, kind, err := ch.decode([]byte(`{"screen_id":"tv-1","payload":null,"origin":"instance-a"}`))
		require.NoError(t, err)
		assert.Equal(t, inboundSkip, kind)

		_, kind, err = ch.decode([]byte(`{"type":"catalog:changed","origin":"instance-a"}`))
		require.NoError(t, err)
		assert.Equal(t, inboundSkip, kind)
	})

	t.Run("catalog notice", func(t *testing.T) {
		_, kind, err := ch.decode([]byte(`{"type":"catalog:changed","origin":"instance-b","sent_at":"2025-01-01T08:00:00Z"}`))
		require.NoError(t, err)
		assert.Equal(t, inboundCatalog, kind)
	})

	t.Run("unknown notice type", func(t *testing.T) {
		_, kind, err := ch.decode([]byte(`{"type":"pricing:changed","origin":"instance-b"}`))
		require.NoError(t, err)
		assert.Equal(t, inboundSkip, kind)
	})

	t.Run("missing screen id", func(t *testing.T) {
		_, _, err := ch.decode([]byte(`{"payload":null}`))
		assert.ErrorIs(t, err, model.ErrData)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := ch.decode([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestRedisChannel_ConsumeKeepsOrder(t *testing.T) {
	client, _ := redismock.NewClientMock()
	ch := NewRedisChannel(client, "screen:update")

	msgs := make(chan *redis.Message, 4)
	msgs <- &redis.Message{Payload: `{"screen_id":"tv-1","payload":{"customer_name":"Budi","is_active":true}}`}
	msgs <- &redis.Message{Payload: `broken`}
	msgs <- &redis.Message{Payload: `{"screen_id":"tv-1","payload":null}`}
	close(msgs)

	out := make(chan slots.Event, 4)
	ch.consume(context.Background(), msgs, out)

	var kinds []slots.Kind
	for ev := range out {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []slots.Kind{slots.KindAssign, slots.KindRemove}, kinds)
}

func TestRedisChannel_PublishCatalogChanged(t *testing.T) {
	client, mock := redismock.NewClientMock()
	ch := NewRedisChannel(client, "screen:update")
	ch.origin = "instance-a"
	sentAt := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	ch.now = func() time.Time { return sentAt }

	data, err := json.Marshal(model.CatalogNotice{Type: model.NoticeCatalogChanged, Origin: "instance-a", SentAt: sentAt})
	require.NoError(t, err)
	mock.ExpectPublish("screen:update", data).SetVal(1)

	require.NoError(t, ch.PublishCatalogChanged(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChannel_ConsumeRunsCatalogHook(t *testing.T) {
	client, _ := redismock.NewClientMock()
	ch := NewRedisChannel(client, "screen:update")

	var reloads int
	ch.OnCatalogChanged(func(context.Context) { reloads++ })

	msgs := make(chan *redis.Message, 3)
	msgs <- &redis.Message{Payload: `{"type":"catalog:changed","origin":"instance-b"}`}
	msgs <- &redis.Message{Payload: `{"screen_id":"tv-1","payload":null}`}
	msgs <- &redis.Message{Payload: `{"type":"catalog:changed","origin":"` + ch.origin + `"}`}
	close(msgs)

	out := make(chan slots.Event, 3)
	ch.consume(context.Background(), msgs, out)

	assert.Equal(t, 1, reloads)
	var kinds []slots.Kind
	for ev := range out {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []slots.Kind{slots.KindRemove}, kinds)
}

func startBroadcaster(t *testing.T) (*slots.Reconciler, *httptest.Server) {
	t.Helper()
	rec, err := slots.New(screens, nil)
	require.NoError(t, err)

	b := NewBroadcaster(rec)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	server := httptest.NewServer(b)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return rec, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBroadcaster_ScreenClient(t *testing.T) {
	rec, server := startBroadcaster(t)
	conn := dial(t, server, "?screen=tv-2")

	initial := readMessage(t, conn)
	assert.Equal(t, EventScreenUpdate, initial["event"])
	assert.Equal(t, "tv-2", initial["screen_id"])
	assert.Contains(t, initial, "payload")
	assert.Nil(t, initial["payload"])

	// A change on another screen is not sent to this view.
	_, err := rec.Apply(slots.Assign("tv-1", model.SlotRecord{CustomerName: "Sari"}, time.Now(), slots.SourceLocal))
	require.NoError(t, err)
	_, err = rec.Apply(slots.Assign("tv-2", model.SlotRecord{CustomerName: "Budi", LicensePlate: "B 1 XY"}, time.Now(), slots.SourceLocal))
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, "tv-2", msg["screen_id"])
	payload, ok := msg["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Budi", payload["customer_name"])
	assert.Equal(t, true, payload["is_active"])

	_, err = rec.Apply(slots.Remove("tv-2", time.Now(), slots.SourceLocal))
	require.NoError(t, err)
	msg = readMessage(t, conn)
	assert.Nil(t, msg["payload"])
}

func TestBroadcaster_DashboardClientGetsTable(t *testing.T) {
	rec, server := startBroadcaster(t)
	conn := dial(t, server, "")

	initial := readMessage(t, conn)
	assert.Equal(t, EventTable, initial["event"])

	_, err := rec.Apply(slots.Assign("tv-4", model.SlotRecord{CustomerName: "Budi"}, time.Now(), slots.SourceLocal))
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, EventTable, msg["event"])
	table := msg["table"].(map[string]any)
	assert.Equal(t, float64(1), table["version"])
	rows := table["slots"].([]any)
	require.Len(t, rows, 4)
	last := rows[3].(map[string]any)["record"].(map[string]any)
	assert.Equal(t, "Budi", last["customerName"])
}

func TestBroadcaster_UnknownScreen(t *testing.T) {
	_, server := startBroadcaster(t)

	resp, err := http.Get(server.URL + "/?screen=tv-9")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChangedScreens(t *testing.T) {
	prev := slots.Table{Slots: []slots.Slot{
		{ScreenID: "tv-1", Record: &model.SlotRecord{CustomerName: "Budi"}},
		{ScreenID: "tv-2"},
	}}
	next := slots.Table{Slots: []slots.Slot{
		{ScreenID: "tv-1", Record: &model.SlotRecord{CustomerName: "Budi"}},
		{ScreenID: "tv-2", Record: &model.SlotRecord{CustomerName: "Sari"}},
	}}
	assert.Equal(t, map[string]bool{"tv-2": true}, changedScreens(prev, next))
}
