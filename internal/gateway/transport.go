package gateway

import (
	"context"
	"errors"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Connector builds a fresh transport for every connection attempt.
type Connector func(ctx context.Context) (mcp.Transport, error)

// CommandConnector runs the tool server as a child process speaking over stdio.
func CommandConnector(command string, args ...string) Connector {
	return func(ctx context.Context) (mcp.Transport, error) {
		if _, err := exec.LookPath(command); err != nil {
			return nil, err
		}
		return &mcp.CommandTransport{Command: exec.Command(command, args...)}, nil
	}
}

// EndpointConnector talks to a streamable HTTP MCP endpoint.
func EndpointConnector(endpoint string) Connector {
	return func(ctx context.Context) (mcp.Transport, error) {
		return &mcp.StreamableClientTransport{Endpoint: endpoint}, nil
	}
}

type Config struct {
	Name     string
	Command  string
	Args     []string
	Endpoint string
}

func (c Config) Connector() (Connector, error) {
	switch {
	case c.Endpoint != "":
		return EndpointConnector(c.Endpoint), nil
	case c.Command != "":
		return CommandConnector(c.Command, c.Args...), nil
	}
	return nil, errors.New("gateway: either a command or an endpoint is required")
}
