// Copyright (c) Hyper Authors. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package registry

import (
	"context"

	"github.com/hyper-run/hyper/internal/errkind"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

// Client resolves and registers names against one name server address.
type Client struct {
	addr string
	pool *transport.Pool
}

// NewClient builds a registry client dialing serverAddr lazily.
func NewClient(serverAddr string, handler transport.Handler) *Client {
	return &Client{addr: serverAddr, pool: transport.NewPool(handler)}
}

// Register asks the name server to register name as reachable at host,
// offered only as a hint for the server's host:port assignment, and
// returns the endpoint the server actually assigned (spec §4.1
// "register(name, endpoints) — returns a newly allocated server port").
func (c *Client) Register(ctx context.Context, name, host string) (string, error) {
	conn, err := c.pool.Get(c.addr)
	if err != nil {
		return "", err
	}
	f, err := conn.Request(ctx, &wire.RegisterName{Name: name, Endpoints: []string{host}})
	if err != nil {
		c.pool.Drop(c.addr)
		return "", err
	}
	ans, ok := f.Payload.(*wire.RegisterNameAnswer)
	if !ok || !ans.Success || ans.AssignedEndpoint == "" {
		return "", errkind.NotFound
	}
	return ans.AssignedEndpoint, nil
}

// Resolve asks the name server for name's endpoints.
func (c *Client) Resolve(ctx context.Context, name string) ([]string, error) {
	conn, err := c.pool.Get(c.addr)
	if err != nil {
		return nil, err
	}
	f, err := conn.Request(ctx, &wire.RequestName{Name: name})
	if err != nil {
		c.pool.Drop(c.addr)
		return nil, err
	}
	ans, ok := f.Payload.(*wire.RequestNameAnswer)
	if !ok || !ans.Success {
		return nil, errkind.NotFound
	}
	return ans.Endpoints, nil
}

// Close releases pooled connections.
func (c *Client) Close() { c.pool.Close() }
