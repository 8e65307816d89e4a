package device

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tturner/nxsync/internal/logging"
)

// NXAPIOptions configures the NX-API client.
type NXAPIOptions struct {
	Scheme   string        // "http" or "https" (default https)
	Port     int           // 0 selects 80 or 443 from Scheme
	Timeout  time.Duration // Per request timeout
	Insecure bool          // Skip TLS certificate verification
}

// DefaultNXAPIOptions returns the defaults used for devices in the inventory.
func DefaultNXAPIOptions() NXAPIOptions {
	return NXAPIOptions{
		Scheme:  "https",
		Timeout: 30 * time.Second,
	}
}

// NXAPI is a Channel that talks JSON-RPC 2.0 to the NX-API endpoint at /ins.
type NXAPI struct {
	url      string
	username string
	password string
	client   *http.Client
	log      *logging.Logger
}

// NewNXAPI creates an NX-API client for the device. No request is made.
func NewNXAPI(id Identity, opts NXAPIOptions, logger *logging.Logger) (*NXAPI, error) {
	if id.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%q is an invalid NX-API transport", scheme)
	}

	port := opts.Port
	if port == 0 {
		port = 443
		if scheme == "http" {
			port = 80
		}
	}

	if logger == nil {
		logger = logging.Discard()
	}

	httpTransport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		httpTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per device
	}

	return &NXAPI{
		url:      fmt.Sprintf("%s://%s/ins", scheme, net.JoinHostPort(id.Host, strconv.Itoa(port))),
		username: id.Username,
		password: id.Password,
		client:   &http.Client{Transport: httpTransport, Timeout: opts.Timeout},
		log:      logger,
	}, nil
}

// URL returns the endpoint the client posts to.
func (n *NXAPI) URL() string {
	return n.url
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	Cmd     string `json:"cmd"`
	Version int    `json:"version"`
}

type rpcResponse struct {
	Result *rpcResult `json:"result"`
	Error  *rpcError  `json:"error"`
	ID     int        `json:"id"`
}

type rpcResult struct {
	Body json.RawMessage `json:"body"`
	Msg  *string         `json:"msg"`
}

type rpcError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *rpcErrorData `json:"data"`
}

type rpcErrorData struct {
	Msg      string `json:"msg"`
	CLIError string `json:"clierror"`
}

// Show runs command with the cli_ascii method.
func (n *NXAPI) Show(ctx context.Context, command string) (string, error) {
	result, err := n.call(ctx, "cli_ascii", command)
	if err != nil {
		return "", err
	}
	if result == nil || result.Msg == nil {
		return "", nil
	}
	return *result.Msg, nil
}

// ShowStructured runs command with the cli method. A reply without a body
// yields a nil map.
func (n *NXAPI) ShowStructured(ctx context.Context, command string) (map[string]any, error) {
	result, err := n.call(ctx, "cli", command)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Body) == 0 || string(result.Body) == "null" {
		return nil, nil
	}

	var body map[string]any
	if err := json.Unmarshal(result.Body, &body); err != nil {
		return nil, fmt.Errorf("decode body of %q: %w", command, err)
	}
	return body, nil
}

func (n *NXAPI) call(ctx context.Context, method, command string) (*rpcResult, error) {
	payload, err := json.Marshal([]rpcRequest{{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rpcParams{Cmd: command, Version: 1},
		ID:      1,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	req.SetBasicAuth(n.username, n.password)

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.LogCommand("nxapi", command, 0, err)
		return nil, fmt.Errorf("nxapi request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read nxapi reply: %w", err)
	}
	n.log.LogCommand("nxapi", command, len(data), nil)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("nxapi: authentication failed for user %q", n.username)
	}

	responses, err := decodeResponses(data)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("nxapi: HTTP %d", resp.StatusCode)
		}
		return nil, err
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("nxapi: empty reply for %q", command)
	}

	r := responses[0]
	if r.Error != nil {
		return nil, commandErrorFrom(command, r.Error)
	}
	return r.Result, nil
}

// decodeResponses accepts a list of responses or a single response object.
func decodeResponses(data []byte) ([]rpcResponse, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []rpcResponse
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode nxapi reply: %w", err)
		}
		return list, nil
	}

	var single rpcResponse
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decode nxapi reply: %w", err)
	}
	return []rpcResponse{single}, nil
}

func commandErrorFrom(command string, e *rpcError) *CommandError {
	if e.Data == nil {
		return &CommandError{Command: command, Kind: KindFailed, Message: "Invalid command."}
	}

	raw := e.Data.CLIError
	if raw == "" {
		raw = e.Data.Msg
	}
	return &CommandError{
		Command:   command,
		Kind:      classify(e.Data.Msg),
		Message:   e.Data.Msg,
		RawOutput: raw,
	}
}

var _ Channel = (*NXAPI)(nil)
