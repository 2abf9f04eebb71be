/*
Command rpc-server hosts one robot.Descriptor service per accepted TCP
connection, the way the teacher's cmd/server accepts connections onto a
shared hub -- except here each peer gets its own independent Service
instance, since the protocol this repository implements is a single
proxy-to-service session rather than a multi-client relay.
*/
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"

	ribbonlog "github.com/ribbonrpc/rpc/logging"
	"github.com/ribbonrpc/rpc/robot"
	"github.com/ribbonrpc/rpc/service"
	"github.com/ribbonrpc/rpc/status"
	"github.com/ribbonrpc/rpc/transport"
)

var log *logging.Logger

func main() {
	app := &cli.App{
		Name:                   "rpc-server",
		Usage:                  "Host the robot interface for incoming RPC client connections",
		Action:                 runServer,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"p"},
				Usage:    "Listen on the given `PORT` for incoming TCP connections.",
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

func runServer(c *cli.Context) error {
	level, err := logging.LogLevel(c.String("log-level"))
	if err != nil {
		level = logging.NOTICE
	}
	log = ribbonlog.Setup("rpc-server", level)

	port := c.Int("port")
	if port < 1 || port > 0xFFFF {
		return fmt.Errorf("PORT out of range: %d", port)
	}

	endpoint := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", endpoint, err)
	}
	defer listener.Close()

	log.Noticef("listening on %s", endpoint)

	var wg sync.WaitGroup
	connections := make(chan net.Conn)
	go acceptLoop(listener, connections)

	quit := make(chan os.Signal, 2)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case conn, ok := <-connections:
			if !ok {
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				serveConnection(conn)
			}()
		case <-quit:
			listener.Close()
			wg.Wait()
			return nil
		}
	}
}

func acceptLoop(listener net.Listener, out chan<- net.Conn) {
	defer close(out)
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		out <- conn
	}
}

func serveConnection(raw net.Conn) {
	defer raw.Close()
	peer := raw.RemoteAddr()
	log.Infof("accepted connection from %s", peer)

	conn := transport.New(raw)
	handler := newDemoRobot()
	svc := service.New(robot.Descriptor{}, robot.Adapter{Handler: handler}, conn)

	err := conn.Run(svc.ReceiveClientBuffer)
	if err != nil {
		log.Warningf("connection from %s ended: %v", peer, err)
		return
	}
	log.Infof("connection from %s closed", peer)
}

// demoRobot is a trivial in-memory robot.Handler for the CLI, with no
// hardware behind it: SetMotorPower stores the value, Move reports the
// sum of its three angles as its fun factor.
type demoRobot struct {
	mu         sync.Mutex
	motorPower float32
}

func newDemoRobot() *demoRobot {
	return &demoRobot{}
}

func (d *demoRobot) MotorPower() float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.motorPower
}

func (d *demoRobot) SetMotorPower(v float32) status.RemoteStatus {
	d.mu.Lock()
	d.motorPower = v
	d.mu.Unlock()
	return status.REMOTE_OK
}

func (d *demoRobot) Move(in robot.MoveIn) (robot.MoveResult, status.RemoteStatus) {
	return robot.MoveResult{FunFactor: in.DesiredAngle1 + in.DesiredAngle2 + in.DesiredAngle3}, status.REMOTE_OK
}

func (d *demoRobot) OnSubscribeMotorPower()    { log.Debug("peer subscribed to motorPower") }
func (d *demoRobot) OnUnsubscribeMotorPower()  { log.Debug("peer unsubscribed from motorPower") }
func (d *demoRobot) OnSubscribeButtonPress()   { log.Debug("peer subscribed to buttonPress") }
func (d *demoRobot) OnUnsubscribeButtonPress() { log.Debug("peer unsubscribed from buttonPress") }
