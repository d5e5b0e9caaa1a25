package httpsource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rowvirt/vlist/internal/adapter"
	"github.com/rowvirt/vlist/internal/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestReadFetchesAndDecodesRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("start"))
		assert.Equal(t, "1", r.URL.Query().Get("end"))
		fmt.Fprint(w, `{"items":[{"id":"a","data":{"name":"alpha"}},{"id":"b","data":{"name":"beta"}}]}`)
	}))
	defer srv.Close()

	src := New[payload](srv.URL, nil)
	res, err := src.Read(context.Background(), adapter.ReadRequest{Range: item.Range{Start: 0, End: 1}})
	require.NoError(t, err)
	assert.Equal(t, "alpha", res.Items[0].Data.Name)
	assert.Equal(t, "b", res.Items[1].ID)
}

func TestReadReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := New[payload](srv.URL, nil)
	_, err := src.Read(context.Background(), adapter.ReadRequest{Range: item.Range{Start: 0, End: 1}})
	assert.Error(t, err)
}

func TestPushListenerInvokesCallbackOnMessage(t *testing.T) {
	received := make(chan string, 1)
	listener := NewPushListener("/push", func(msg []byte) { received <- string(msg) })

	srv := httptest.NewServer(listener.Handler())
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):] + "/push"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("reload")))

	select {
	case msg := <-received:
		assert.Equal(t, "reload", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("push callback did not fire")
	}
}
