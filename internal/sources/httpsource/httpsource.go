// Package httpsource implements an adapter.Source backed by a remote HTTP
// API, plus a small WebSocket listener that hands each change notification
// the upstream pushes to a caller-supplied callback. This is the other concrete
// Source SPEC_FULL.md calls for: gorilla/mux routes the push endpoint and
// gorilla/websocket upgrades it, json-iterator decodes the paginated HTTP
// range responses; push messages reach the callback as raw bytes. None of
// this exists in the
// teacher (which talks to the Kubernetes API via a generated clientset, not
// raw HTTP+JSON), so the wiring here is grounded on the retrieval pack's
// general use of gorilla/mux and gorilla/websocket for a routed HTTP
// surface rather than a single teacher file.
package httpsource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/rowvirt/vlist/internal/adapter"
	"github.com/rowvirt/vlist/internal/item"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// page is the wire shape a compliant upstream range endpoint returns.
type page[T any] struct {
	Items []wireItem[T] `json:"items"`
}

type wireItem[T any] struct {
	ID   string `json:"id"`
	Data T      `json:"data"`
}

// Source fetches item ranges from a REST endpoint of the form
// "<baseURL>?start=<i>&end=<j>".
type Source[T any] struct {
	baseURL string
	client  *http.Client
}

// New constructs a Source against baseURL. client defaults to
// http.DefaultClient when nil.
func New[T any](baseURL string, client *http.Client) *Source[T] {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source[T]{baseURL: baseURL, client: client}
}

// Read implements adapter.Source[T].
func (s *Source[T]) Read(ctx context.Context, req adapter.ReadRequest) (adapter.ReadResult[T], error) {
	url := fmt.Sprintf("%s?start=%d&end=%d", s.baseURL, req.Range.Start, req.Range.End)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return adapter.ReadResult[T]{}, err
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return adapter.ReadResult[T]{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return adapter.ReadResult[T]{}, fmt.Errorf("httpsource: unexpected status %d fetching %s", resp.StatusCode, url)
	}

	var p page[T]
	if err := fastJSON.NewDecoder(resp.Body).Decode(&p); err != nil {
		return adapter.ReadResult[T]{}, fmt.Errorf("httpsource: decode %s: %w", url, err)
	}

	items := make([]item.Item[T], req.Range.Len())
	for i, wi := range p.Items {
		if i >= len(items) {
			break
		}
		items[i] = item.Item[T]{ID: wi.ID, Data: wi.Data}
	}
	return adapter.ReadResult[T]{Items: items, Range: req.Range}, nil
}

// PushListener runs a small HTTP server that upgrades a single route to a
// WebSocket and invokes onPush for every message received on it. What to do
// with a message (for example, refetching items) is left to onPush; the
// engine has no reload method of its own.
type PushListener struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	onPush   func([]byte)
}

// NewPushListener constructs a listener that calls onPush for every
// WebSocket message it receives on path.
func NewPushListener(path string, onPush func([]byte)) *PushListener {
	l := &PushListener{
		router: mux.NewRouter(),
		onPush: onPush,
	}
	l.router.HandleFunc(path, l.handle)
	return l
}

// Handler returns the underlying http.Handler, for mounting under an
// existing server or passed directly to http.ListenAndServe.
func (l *PushListener) Handler() http.Handler { return l.router }

func (l *PushListener) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if l.onPush != nil {
			l.onPush(msg)
		}
	}
}
