package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Node is a remote-config endpoint found on the network.
type Node struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "opi-zero.local.")
	Hostname string

	// IP is the first advertised address, IPv4 preferred
	IP string

	// Port is the HTTP port
	Port int

	// Metadata holds the TXT records, e.g. "board", "version", "path"
	Metadata map[string]string

	// DiscoveredAt is when the advertisement was received
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the node
func (n *Node) String() string {
	if board := n.GetMetadata("board"); board != "" {
		return fmt.Sprintf("%s [%s] at %s", n.Instance, board, n.Address())
	}
	return fmt.Sprintf("%s at %s", n.Instance, n.Address())
}

// Address returns host:port, bracketing IPv6 addresses.
func (n *Node) Address() string {
	return net.JoinHostPort(n.IP, strconv.Itoa(n.Port))
}

// BaseURL returns the HTTP base URL for the node
func (n *Node) BaseURL() string {
	return "http://" + n.Address()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (n *Node) GetMetadata(key string) string {
	if n.Metadata == nil {
		return ""
	}
	return n.Metadata[key]
}
