// Package discovery advertises a running hub on the local network and finds
// one from a participant.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_drawboard._tcp"

var ErrNotFound = errors.New("discovery: no hub found")

// Advertise announces a hub listening on port. Shut the returned server down
// to withdraw the announcement.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"drawboard"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Lookup browses for a hub and returns the host:port of the first one with
// an IPv4 address.
func Lookup(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	go forward(entries, found)

	queryErr := make(chan error, 1)
	go func() {
		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = timeout
		params.DisableIPv6 = true
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	return await(ctx, found, queryErr)
}

// forward passes the first usable entry to found and closes found once
// entries is drained.
func forward(entries <-chan *mdns.ServiceEntry, found chan<- string) {
	defer close(found)
	for e := range entries {
		if addr, ok := entryAddr(e); ok {
			select {
			case found <- addr:
			default:
			}
		}
	}
}

// await waits for an address on found. found is closed only after the query
// has finished, so queryErr is ready by then.
func await(ctx context.Context, found <-chan string, queryErr <-chan error) (string, error) {
	select {
	case addr, ok := <-found:
		if ok {
			return addr, nil
		}
		if err := <-queryErr; err != nil {
			return "", fmt.Errorf("mdns query: %w", err)
		}
		return "", ErrNotFound
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func entryAddr(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port), true
}
