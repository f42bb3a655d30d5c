// cmd/receiver runs a delivery-guarantee Receiver and prints every message
// delivered to the local user as it arrives.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"distributed-protocols/internal/guarantees"
	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/transport"
)

func main() {
	var (
		name      string
		listen    string
		debugLogs bool
	)

	root := &cobra.Command{
		Use:   "receiver",
		Short: "Delivery-guarantee receiver (INFO-1..INFO-4)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(name, listen, debugLogs)
		},
	}
	root.Flags().StringVarP(&name, "name", "n", "receiver", "process name")
	root.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:9701", "listen on host:port")
	root.Flags().BoolVarP(&debugLogs, "debug", "d", false, "print debugging info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name, listen string, debugLogs bool) error {
	tr, err := transport.Listen(listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	defer tr.Close()

	log := logging.New(name, string(tr.LocalAddr()), debugLogs)
	mailbox := runtime.NewLocalMailbox()
	comm := runtime.NewCommunicator(tr, mailbox, log)
	driver := mailbox.Driver()

	receiver := guarantees.NewReceiver(comm, log)
	go receiver.Run()

	for delivered := range driver.RecvChan() {
		fmt.Printf("%s %v\n", delivered.Type, delivered.Body)
	}
	return nil
}
