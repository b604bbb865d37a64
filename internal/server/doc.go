// Package server is the network layer of remoteconfigd.
//
// It listens on TCP, gives every accepted connection an id and an
// httpd.Request, and passes the bytes read from the connection to
// Request.HandleRequest. Reads arrive in whatever pieces TCP delivers them;
// the engine keeps the partial request between calls.
//
// # Concurrency
//
// The engine is not safe for concurrent use, so one event-loop goroutine
// owns all requests. Each connection has a reader goroutine that:
//  1. reads up to one segment with an idle deadline
//  2. hands the chunk to the loop and waits until the loop is done with it
//  3. closes the connection once a response went out (Connection: close)
//
// The loop writes responses back through Server.Write, which implements
// httpd.Transport.
//
// # Timeouts
//
// A connection that stays idle for Config.IdleTimeout with a request half
// received is answered with 408 and closed. An idle connection with nothing
// received is closed silently.
//
// # mDNS
//
// With MDNSConfig.Enabled the server registers an "_http._tcp" service with
// the TXT record "remoteconfig=1", which the discovery package looks for.
//
// # Graceful Shutdown
//
// Start handles SIGINT and SIGTERM. On shutdown the listener and all
// connections are closed and the readers are waited for.
package server
