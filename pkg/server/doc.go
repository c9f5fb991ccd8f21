// Package server provides a replay server that serves recorded agent
// streams over SSE.
//
// The replay server answers invoke requests with pre-recorded frame
// sequences, which makes it useful for demos, integration tests, and
// local development against a deterministic stream without a live
// agent runtime behind it.
//
// Example usage:
//
//	import "github.com/agentrelay/go-sdk/pkg/server"
//
//	// Create a replay server with a canned stream
//	s := server.New(server.Config{Address: ":8080"})
//	s.SetDefault([]string{
//		`{"message":{"content":[{"text":"Hello!"}]}}`,
//	})
//
//	// Start serving
//	if err := s.ListenAndServe(); err != nil {
//		log.Fatal(err)
//	}
package server
