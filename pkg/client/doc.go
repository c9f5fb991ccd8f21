// Package client provides the high-level SDK for streaming agent
// responses from an AgentRelay runtime.
//
// The client ties the transport, framer and engine together: it sends an
// outbound query, consumes the runtime's server-pushed byte stream, and
// delivers normalized events over a channel until a terminal completion
// (or error-then-completion pair) arrives. Multiple sessions may stream
// concurrently and are fully independent.
//
// Example usage:
//
//	import "github.com/agentrelay/go-sdk/pkg/client"
//
//	c, err := client.New(client.Config{
//		BaseURL: "https://runtime.example.com/invoke",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	ch, err := c.Stream(ctx, core.QueryInput{
//		Text:      "@PlannerAgent set the Q3 budget",
//		SessionID: sessionID,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for ev := range ch {
//		fmt.Println(ev.Kind, ev.Text())
//	}
package client
