// Package client is an HTTP client for the /json API of a remoteconfig node.
//
// # Usage Example
//
//	c := client.NewClient("192.168.2.120", 80)
//
//	props, err := c.GetConfig(ctx, "network.txt")
//	if err != nil {
//	    log.Fatal(client.ShortMessage(err))
//	}
//
//	err = c.SetConfig(ctx, "network.txt", []client.Property{
//	    {Key: "hostname", Value: "stage-left"},
//	})
//
//	err = c.Do(ctx,
//	    client.Action{Key: "display", Value: "1"},
//	    client.Action{Key: "identify", Value: "1"},
//	)
//
// # Error Handling
//
// Every method returns *Error, typed by ErrorType. Network failures, 5xx
// and 408 answers are retried with exponential backoff; 400, 404, 413 and
// 501 are not, since the node gives the same answer every time.
package client
