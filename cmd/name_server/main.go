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

// Command name_server runs the Hyper name registry (spec §6 CLI
// surface: "name_server <host> <port> [--verbose]").
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/hyper-run/hyper/internal/log"
	"github.com/hyper-run/hyper/registry"
	"github.com/pingcap/errors"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "name_server"
	app.Usage = "name_server <host> <port> [--verbose]"
	app.ArgsUsage = "<host> <port>"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log every request_name/register_name frame",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("name_server: %+v", err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.Errorf("usage: %s", c.App.Usage)
	}
	host, port := c.Args().Get(0), c.Args().Get(1)
	addr := net.JoinHostPort(host, port)

	srv := registry.NewServer(c.Bool("verbose"))
	if err := srv.Listen(addr); err != nil {
		return errors.Trace(err)
	}
	defer srv.Close()

	fmt.Printf("name_server listening on %s\n", srv.Addr())
	select {}
}
