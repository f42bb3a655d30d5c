// cmd/rpcserver runs the idempotent RPC store server: get/put/append/remove
// against an in-memory Store, deduplicating retried idempotent calls.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/rpcstore"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/transport"
)

func main() {
	var (
		listen    string
		debugLogs bool
	)

	root := &cobra.Command{
		Use:   "rpcserver",
		Short: "Idempotent RPC store server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(listen, debugLogs)
		},
	}
	root.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:9701", "listen on host:port")
	root.Flags().BoolVarP(&debugLogs, "debug", "d", false, "print debugging info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(listen string, debugLogs bool) error {
	tr, err := transport.Listen(listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	defer tr.Close()

	log := logging.New("rpcserver", string(tr.LocalAddr()), debugLogs)
	mailbox := runtime.NewLocalMailbox()
	comm := runtime.NewCommunicator(tr, mailbox, log)

	store := rpcstore.NewInMemoryStore()
	server := rpcstore.NewServer(comm, store, log)

	log.Infof("serving on %s", tr.LocalAddr())
	server.Run()
	return nil
}
