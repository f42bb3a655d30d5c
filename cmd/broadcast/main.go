// cmd/broadcast runs an ordered reliable broadcast peer. Each line typed
// on stdin is broadcast to every configured peer; delivered messages
// (including ones forwarded through other peers) are printed as
// "DELIVER <from>: <body>".
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"distributed-protocols/internal/broadcast"
	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/transport"
	"distributed-protocols/internal/wire"
)

func main() {
	var (
		name      string
		listen    string
		peersFlag string
		debugLogs bool
	)

	root := &cobra.Command{
		Use:   "broadcast",
		Short: "Ordered reliable broadcast peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(name, listen, peersFlag, debugLogs)
		},
	}
	root.Flags().StringVarP(&name, "name", "n", "peer1", "peer name (should be unique)")
	root.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:9701", "listen on host:port")
	root.Flags().StringVarP(&peersFlag, "peers", "p", "127.0.0.1:9701,127.0.0.1:9702", "comma separated list of peers")
	root.Flags().BoolVarP(&debugLogs, "debug", "d", false, "print debugging info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name, listen, peersFlag string, debugLogs bool) error {
	tr, err := transport.Listen(listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	defer tr.Close()

	var peers []wire.Address
	for _, p := range strings.Split(peersFlag, ",") {
		if p = strings.TrimSpace(p); p != "" {
			peers = append(peers, wire.Address(p))
		}
	}

	log := logging.New(name, string(tr.LocalAddr()), debugLogs)
	mailbox := runtime.NewLocalMailbox()
	comm := runtime.NewCommunicator(tr, mailbox, log)
	driver := mailbox.Driver()

	peer := broadcast.NewPeer(name, peers, comm, log)
	go peer.Run()

	go func() {
		for delivered := range driver.RecvChan() {
			fmt.Printf("%s %v\n", delivered.Type, delivered.Body)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		driver.Send(wire.NewLocal("SEND", line))
	}
	return scanner.Err()
}
