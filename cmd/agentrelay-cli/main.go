// Package main provides the agentrelay CLI for inspecting agent streams.
//
// It either connects to a live agent endpoint and streams one query, or
// replays a recorded SSE transcript from stdin. In both modes every
// normalized event is printed as one JSON line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/agentrelay/go-sdk/pkg/client"
	"github.com/agentrelay/go-sdk/pkg/core"
	"github.com/agentrelay/go-sdk/pkg/core/events"
	"github.com/agentrelay/go-sdk/pkg/engine"
)

func main() {
	var (
		url     = flag.String("url", "", "agent endpoint URL; reads a recorded stream from stdin when empty")
		token   = flag.String("token", "", "bearer token for the endpoint")
		input   = flag.String("input", "", "query text to send (required with -url)")
		session = flag.String("session", "cli", "session ID")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *url, *token, *input, *session); err != nil {
		fmt.Fprintln(os.Stderr, "agentrelay-cli:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, url, token, input, session string) error {
	if url == "" {
		return replayStdin(ctx, session)
	}
	if input == "" {
		return fmt.Errorf("-input is required with -url")
	}

	c, err := client.New(client.Config{BaseURL: url, Token: token})
	if err != nil {
		return err
	}
	defer c.Close()

	ch, err := c.Stream(ctx, core.QueryInput{Text: input, SessionID: session})
	if err != nil {
		return err
	}
	return printEvents(ch)
}

func replayStdin(ctx context.Context, session string) error {
	e := engine.New(engine.DefaultConfig())
	defer e.Close()
	return printEvents(e.ProcessReader(ctx, session, os.Stdin))
}

func printEvents(ch <-chan *events.StreamEvent) error {
	for ev := range ch {
		line, err := events.EventToJSONLine(ev)
		if err != nil {
			return err
		}
		os.Stdout.Write(line)
	}
	return nil
}
