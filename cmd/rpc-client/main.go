/*
Command rpc-client is an interactive shell around a robot.Proxy, in the
same spirit as the teacher's cmd/client interactive loop -- a thin
read-eval-print wrapper so a person can drive a connected service by hand.
*/
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"

	ribbonlog "github.com/ribbonrpc/rpc/logging"
	"github.com/ribbonrpc/rpc/robot"
	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/transport"
)

var log *logging.Logger

func main() {
	app := &cli.App{
		Name:                   "rpc-client",
		Usage:                  "Connect to an rpc-server and drive its robot interface interactively",
		Action:                 runClient,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "server",
				Aliases:  []string{"s"},
				Usage:    "Connect to the rpc-server at the provided `HOSTNAME`.",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"p"},
				Usage:    "Connect to the given `PORT` of the rpc-server.",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "One of CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG.",
				Value: "NOTICE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(c *cli.Context) error {
	level, err := logging.LogLevel(c.String("log-level"))
	if err != nil {
		level = logging.NOTICE
	}
	log = ribbonlog.Setup("rpc-client", level)

	port := c.Int("port")
	if port < 1 || port > 0xFFFF {
		return fmt.Errorf("PORT out of range: %d", port)
	}

	endpoint := fmt.Sprintf("%s:%d", c.String("server"), port)
	raw, err := net.Dial("tcp", endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer raw.Close()

	conn := transport.New(raw)
	proxy := robot.NewProxy(conn, func(bp robot.ButtonPress) {
		log.Infof("buttonPress broadcast: pressed=%v", bp.Pressed)
	})
	go func() {
		if err := conn.Run(proxy.Core().ReceiveServiceBuffer); err != nil {
			log.Warningf("connection closed: %v", err)
		}
	}()

	if _, st := proxy.Connect().Wait(); status.HasError(st) {
		return fmt.Errorf("connect failed: %v", st)
	}
	log.Noticef("connected to %s", endpoint)

	startInteractive(proxy)
	return nil
}

func printHelp() {
	fmt.Println("Interactive commands:")
	fmt.Println(" get              - read motorPower")
	fmt.Println(" set <float>      - write motorPower")
	fmt.Println(" move <a> <b> <c> - call move(a, b, c)")
	fmt.Println(" sub | unsub      - subscribe/unsubscribe to buttonPress")
	fmt.Println(" quit")
}

func startInteractive(p *robot.Proxy) {
	defer func() {
		_, _ = p.Disconnect().Wait()
	}()

	printHelp()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "get":
			v, st := p.MotorPower().Wait()
			report(v, st)

		case "set":
			if len(fields) != 2 {
				fmt.Println("usage: set <float>")
				continue
			}
			f, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				fmt.Println("invalid float:", err)
				continue
			}
			_, st := p.SetMotorPower(float32(f)).Wait()
			report(nil, st)

		case "move":
			if len(fields) != 4 {
				fmt.Println("usage: move <a> <b> <c>")
				continue
			}
			angles := make([]float32, 3)
			ok := true
			for i, s := range fields[1:] {
				f, err := strconv.ParseFloat(s, 32)
				if err != nil {
					fmt.Println("invalid float:", err)
					ok = false
					break
				}
				angles[i] = float32(f)
			}
			if !ok {
				continue
			}
			result, st := p.Move(angles[0], angles[1], angles[2]).Wait()
			report(result, st)

		case "sub":
			_, st := p.SubscribeButtonPress().Wait()
			report(nil, st)

		case "unsub":
			_, st := p.UnsubscribeButtonPress().Wait()
			report(nil, st)

		case "quit":
			return

		default:
			fmt.Printf("unrecognised command %q\n", fields[0])
		}
	}
}

func report(value any, st status.Status) {
	if status.HasError(st) {
		fmt.Println("error:", st)
		return
	}
	if value != nil {
		fmt.Printf("ok: %v\n", value)
		return
	}
	fmt.Println("ok")
}
