// cmd/rpcclient drives a rpcstore.User from stdin. Each line is a command
// of the form "<func> <arg1> <arg2> ...", e.g.:
//
//	put mykey myvalue True
//	get mykey
//	append mykey more
//	remove mykey
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/rpcstore"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/transport"
	"distributed-protocols/internal/wire"
)

func main() {
	var (
		listen     string
		serverAddr string
		debugLogs  bool
	)

	root := &cobra.Command{
		Use:   "rpcclient",
		Short: "Idempotent RPC store client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(listen, serverAddr, debugLogs)
		},
	}
	root.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:0", "listen on host:port")
	root.Flags().StringVarP(&serverAddr, "server", "s", "127.0.0.1:9701", "server address")
	root.Flags().BoolVarP(&debugLogs, "debug", "d", false, "print debugging info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(listen, serverAddr string, debugLogs bool) error {
	tr, err := transport.Listen(listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	defer tr.Close()

	log := logging.New("rpcclient", string(tr.LocalAddr()), debugLogs)
	mailbox := runtime.NewLocalMailbox()
	comm := runtime.NewCommunicator(tr, mailbox, log)
	driver := mailbox.Driver()

	client := rpcstore.NewRpcClient(comm, wire.Address(serverAddr))
	proxy := rpcstore.NewStoreProxy(client)
	user := rpcstore.NewUser(client, proxy)
	go user.Run()

	go func() {
		for reply := range driver.RecvChan() {
			fmt.Printf("%s %v\n", reply.Type, reply.Body)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		driver.Send(wire.NewLocal("CALL", line))
	}
	return scanner.Err()
}
