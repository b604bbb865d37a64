// Package discovery finds remote-config nodes on the local network by mDNS.
//
// Nodes advertise an "_http._tcp" service carrying the TXT record
// "remoteconfig=1". Plain web servers on the same segment advertise the
// same service type, so entries without the marker are ignored.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	nodes, err := scanner.Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, node := range nodes {
//	    fmt.Println(node, node.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Nodes must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
