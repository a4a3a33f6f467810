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
	"net"
	"strconv"

	"github.com/hyper-run/hyper/internal/log"
	"github.com/hyper-run/hyper/transport"
	"github.com/hyper-run/hyper/wire"
)

// Server is the name_server process: a transport listener dispatching
// request_name/register_name frames against a Map (spec §4.1, §6 CLI
// surface "name_server <host> <port>").
type Server struct {
	Map     *Map
	Verbose bool

	gen *PortGenerator
	t   *transport.Server
}

// NewServer builds a registry server bound to an empty Map. Every
// register_name handled by this server draws its assigned port from a
// single shared generator (spec §4.1 "returns a newly allocated server
// port"), mirroring the original nameserver owning one ns_port_generator
// across all registrations.
func NewServer(verbose bool) *Server {
	return &Server{Map: NewMap(), Verbose: verbose, gen: seededPortGenerator()}
}

// Listen starts accepting connections on addr.
func (s *Server) Listen(addr string) error {
	t, err := transport.Listen(addr, s.handle)
	if err != nil {
		return err
	}
	s.t = t
	return nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if s.t == nil {
		return ""
	}
	return s.t.Addr().String()
}

// Close stops the listener.
func (s *Server) Close() error {
	if s.t == nil {
		return nil
	}
	return s.t.Close()
}

func (s *Server) handle(c *transport.Conn, f *wire.Frame) {
	switch req := f.Payload.(type) {
	case *wire.RequestName:
		s.logVerbose("request_name %s", req.Name)
		endpoints, err := s.Map.Resolve(req.Name)
		if err != nil {
			c.Answer(f.ID, &wire.RequestNameAnswer{Name: req.Name, Success: false})
			return
		}
		c.Answer(f.ID, &wire.RequestNameAnswer{Name: req.Name, Success: true, Endpoints: endpoints})

	case *wire.RegisterName:
		s.logVerbose("register_name %s %v", req.Name, req.Endpoints)
		assigned := s.assign(req, c)
		s.Map.Register(req.Name, []string{assigned})
		c.Answer(f.ID, &wire.RegisterNameAnswer{Name: req.Name, Success: true, AssignedEndpoint: assigned})

	case *wire.Ping:
		// liveness beacon only, no answer expected (spec §6).

	default:
		log.Printf("registry: unexpected frame %s from %s", f.Type, c.RemoteAddr())
	}
}

// assign derives the host the caller registered under (its offered
// endpoint, whether that's a bare host or a host:port, falling back to
// the connection's observed remote address) and combines it with a
// freshly generated port: the registry decides the port, never the
// caller (spec §4.1).
func (s *Server) assign(req *wire.RegisterName, c *transport.Conn) string {
	host := ""
	if len(req.Endpoints) > 0 && req.Endpoints[0] != "" {
		if h, _, err := net.SplitHostPort(req.Endpoints[0]); err == nil {
			host = h
		} else {
			host = req.Endpoints[0]
		}
	}
	if host == "" {
		if h, _, err := net.SplitHostPort(c.RemoteAddr().String()); err == nil {
			host = h
		}
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port := s.gen.Get()
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Server) logVerbose(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf(format, args...)
	}
}
