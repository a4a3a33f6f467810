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

// Command logger runs the Hyper logger process (spec §6): it connects
// to the name server, registers as "logger", and prints every log_msg
// it receives in date order.
package main

import (
	"context"
	"os"

	"github.com/hyper-run/hyper/logcollector"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "logger"
	app.Usage = "connect to the name server and print log_msg frames in order"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "registry",
			Value: "localhost:4242",
			Usage: "name server address",
		},
		cli.StringFlag{
			Name:  "host",
			Value: "127.0.0.1",
			Usage: "host this logger advertises to the name server; the name server assigns the port",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	col := logcollector.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := col.Start(ctx, c.String("host"), c.String("registry")); err != nil {
		return err
	}
	defer col.Close()

	select {}
}
