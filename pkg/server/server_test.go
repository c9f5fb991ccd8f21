package server_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrelay/go-sdk/pkg/client"
	"github.com/agentrelay/go-sdk/pkg/core"
	"github.com/agentrelay/go-sdk/pkg/core/events"
	"github.com/agentrelay/go-sdk/pkg/server"
)

func TestReplay_EndToEnd(t *testing.T) {
	srv := server.New(server.Config{})
	srv.Record("demo", []string{
		`{"event":{"messageStart":{"role":"assistant"}}}`,
		`{"message":{"content":[{"text":"The answer is "}]}}`,
		`{"message":{"content":[{"text":"forty-two."}]}}`,
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := client.New(client.Config{BaseURL: ts.URL + server.DefaultPath})
	require.NoError(t, err)
	defer c.Close()

	ch, err := c.Stream(context.Background(), core.QueryInput{Text: "question", SessionID: "demo"})
	require.NoError(t, err)

	var got []*events.StreamEvent
	for ev := range ch {
		got = append(got, ev)
	}

	require.Len(t, got, 4)
	assert.Equal(t, events.EventKindTrace, got[0].Kind)
	assert.Equal(t, "The answer is ", got[1].Text())
	assert.Equal(t, "forty-two.", got[2].Text())
	assert.Equal(t, events.EventKindComplete, got[3].Kind)
}

func TestReplay_FallbackRecording(t *testing.T) {
	srv := server.New(server.Config{})
	srv.SetDefault([]string{
		`{"message":{"content":[{"text":"default reply"}]}}`,
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := client.New(client.Config{BaseURL: ts.URL + server.DefaultPath})
	require.NoError(t, err)
	defer c.Close()

	ch, err := c.Stream(context.Background(), core.QueryInput{Text: "question", SessionID: "never-recorded"})
	require.NoError(t, err)

	var texts []string
	for ev := range ch {
		if ev.Kind == events.EventKindChunk {
			texts = append(texts, ev.Text())
		}
	}
	assert.Equal(t, []string{"default reply"}, texts)
}

func TestReplay_ForgetEmptiesStream(t *testing.T) {
	srv := server.New(server.Config{})
	srv.Record("demo", []string{
		`{"message":{"content":[{"text":"hello"}]}}`,
	})
	srv.Forget("demo")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := client.New(client.Config{BaseURL: ts.URL + server.DefaultPath})
	require.NoError(t, err)
	defer c.Close()

	ch, err := c.Stream(context.Background(), core.QueryInput{Text: "question", SessionID: "demo"})
	require.NoError(t, err)

	var got []*events.StreamEvent
	for ev := range ch {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, events.EventKindComplete, got[0].Kind)
}
