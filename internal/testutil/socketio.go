package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event is one socket.io event received by a Browser.
type Event struct {
	Name string
	Args []any
}

// Browser is a socket.io client standing in for a page with the live-reload
// client loaded. It records the reload channel events it receives.
type Browser struct {
	io *socket.Socket

	mu     sync.Mutex
	events []Event
}

// ConnectBrowser connects to the reload channel of the dev server at baseURL
// and waits for the connection to be established. The client disconnects
// when the test ends.
func ConnectBrowser(t *testing.T, baseURL string) *Browser {
	t.Helper()

	opts := socket.DefaultOptions()
	opts.SetPath("/socket.io/")
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	b := &Browser{io: io}

	for _, name := range []string{"reload", "stream", "notify"} {
		name := name
		io.On(types.EventName(name), func(args ...any) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.events = append(b.events, Event{Name: name, Args: args})
		})
	}

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) { connected <- nil })
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("socket.io connection failed")
	})
	io.Connect()

	select {
	case err := <-connected:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		io.Disconnect()
		t.Fatal("timed out waiting for socket.io connection")
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// Events returns the events received so far.
func (b *Browser) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Received returns the received events named name.
func (b *Browser) Received(name string) []Event {
	var out []Event
	for _, e := range b.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Close disconnects the client.
func (b *Browser) Close() {
	b.io.Disconnect()
}
