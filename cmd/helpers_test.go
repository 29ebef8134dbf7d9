package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/recallcontext/recall-cli/client"
	"github.com/recallcontext/recall-cli/config"
)

// fakeBackend is an httptest server that records every request it sees.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

func newFakeBackend(t *testing.T, handler http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body.Bytes(),
		})
		fb.mu.Unlock()
		r.Body = http.NoBody
		if handler != nil {
			handler(w, r)
		}
	}))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) Requests() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedRequest(nil), fb.requests...)
}

func (fb *fakeBackend) config() *config.CLIConfig {
	cfg := config.DefaultConfig()
	cfg.ServerURL = fb.URL
	return cfg
}

func (fb *fakeBackend) loadConfig() func() (*config.CLIConfig, error) {
	return func() (*config.CLIConfig, error) {
		return fb.config(), nil
	}
}

func testInitClient(cfg *config.CLIConfig) (*client.Client, error) {
	return client.New(cfg.ServerURL, nil)
}

func respondJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// executeCommand runs cmd with args and returns what it wrote to stdout and stderr.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func confirmWith(answer bool, asked *string) ConfirmFunc {
	return func(prompt string) (bool, error) {
		if asked != nil {
			*asked = prompt
		}
		return answer, nil
	}
}
