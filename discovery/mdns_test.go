package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryAddr(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  string
		ok    bool
	}{
		{name: "nil", entry: nil},
		{name: "no ipv4", entry: &mdns.ServiceEntry{AddrV6: net.ParseIP("::1"), Port: 4000}},
		{name: "no port", entry: &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2)}},
		{name: "usable", entry: &mdns.ServiceEntry{AddrV4: net.IPv4(192, 168, 1, 7), Port: 4000}, want: "192.168.1.7:4000", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := entryAddr(tt.entry)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForward(t *testing.T) {
	entries := make(chan *mdns.ServiceEntry, 4)
	found := make(chan string, 1)

	entries <- &mdns.ServiceEntry{AddrV6: net.ParseIP("::1"), Port: 4000}
	entries <- &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 5), Port: 4000}
	entries <- &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 6), Port: 4000}
	close(entries)
	forward(entries, found)

	addr, ok := <-found
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5:4000", addr)
	_, ok = <-found
	assert.False(t, ok, "found is closed after the first address")
}

func TestAwait(t *testing.T) {
	t.Run("entry handed over after the query returned", func(t *testing.T) {
		found := make(chan string, 1)
		queryErr := make(chan error, 1)
		queryErr <- nil

		go func() {
			time.Sleep(50 * time.Millisecond)
			found <- "192.168.1.2:4000"
			close(found)
		}()

		addr, err := await(context.Background(), found, queryErr)
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.2:4000", addr)
	})

	t.Run("nothing found", func(t *testing.T) {
		found := make(chan string)
		queryErr := make(chan error, 1)
		queryErr <- nil
		close(found)

		_, err := await(context.Background(), found, queryErr)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("query failed", func(t *testing.T) {
		found := make(chan string)
		queryErr := make(chan error, 1)
		boom := errors.New("no multicast")
		queryErr <- boom
		close(found)

		_, err := await(context.Background(), found, queryErr)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := await(ctx, make(chan string), make(chan error))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
