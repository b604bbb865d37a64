package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is what nodes advertise and Scanner browses for.
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// TxtMarker is the TXT record that tells a remote-config node apart
	// from any other web server on the segment.
	TxtMarker = "remoteconfig=1"

	// DefaultScanTimeout is the default timeout for node discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an advertisement carries no port
	DefaultPort = 80
)

// Scanner handles mDNS node discovery
type Scanner struct {
	// Timeout is the maximum time to wait for advertisements
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every node that answers within the timeout, sorted by
// instance name. Repeated advertisements of one instance are merged.
func (s *Scanner) Scan(ctx context.Context) ([]*Node, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found = make(map[string]*Node)
	)

	err := s.browse(ctx, func(node *Node) bool {
		mu.Lock()
		found[node.Instance] = node
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()

	nodes := make([]*Node, 0, len(found))
	for _, node := range found {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Instance < nodes[j].Instance })
	return nodes, nil
}

// Find waits for the node advertising instance and returns as soon as it
// is seen.
func (s *Scanner) Find(ctx context.Context, instance string) (*Node, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	nodeChan := make(chan *Node, 1)

	err := s.browse(ctx, func(node *Node) bool {
		if !strings.EqualFold(node.Instance, instance) {
			return true
		}
		select {
		case nodeChan <- node:
		default:
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case node := <-nodeChan:
		return node, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("node %q not found within %v", instance, s.Timeout)
	}
}

// browse feeds every remote-config entry to fn until fn returns false or
// ctx ends.
func (s *Scanner) browse(ctx context.Context, fn func(*Node) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				node := parseServiceEntry(entry)
				if node != nil && !fn(node) {
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Node.
// Returns nil if the entry lacks the marker or an address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Node {
	if entry == nil {
		return nil
	}

	metadata := make(map[string]string)
	marked := false
	for _, txt := range entry.Text {
		if txt == TxtMarker {
			marked = true
		}
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	if !marked {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Node{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
