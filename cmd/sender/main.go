// cmd/sender drives a delivery-guarantee Sender from stdin.
//
// Each line typed is sent as a local command of the form "<type> <body>",
// e.g.:
//
//	INFO-2 hello world
//	INFO-4 keep order
//
// Replies the sender emits (ERROR for unknown commands) are printed back.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"distributed-protocols/internal/guarantees"
	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/transport"
	"distributed-protocols/internal/wire"
)

func main() {
	var (
		name      string
		listen    string
		recvAddr  string
		debugLogs bool
	)

	root := &cobra.Command{
		Use:   "sender",
		Short: "Delivery-guarantee sender (INFO-1..INFO-4)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(name, listen, recvAddr, debugLogs)
		},
	}
	root.Flags().StringVarP(&name, "name", "n", "sender", "process name")
	root.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:9700", "listen on host:port")
	root.Flags().StringVarP(&recvAddr, "receiver", "r", "127.0.0.1:9701", "receiver address")
	root.Flags().BoolVarP(&debugLogs, "debug", "d", false, "print debugging info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name, listen, recvAddr string, debugLogs bool) error {
	tr, err := transport.Listen(listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	defer tr.Close()

	log := logging.New(name, string(tr.LocalAddr()), debugLogs)
	mailbox := runtime.NewLocalMailbox()
	comm := runtime.NewCommunicator(tr, mailbox, log)
	driver := mailbox.Driver()

	sender := guarantees.NewSender(comm, wire.Address(recvAddr), log)
	go sender.Run()

	go func() {
		for reply := range driver.RecvChan() {
			fmt.Printf("%s %v\n", reply.Type, reply.Body)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if fields[0] == "" {
			continue
		}
		var body string
		if len(fields) == 2 {
			body = fields[1]
		}
		driver.Send(wire.NewLocal(fields[0], body))
	}
	return scanner.Err()
}
