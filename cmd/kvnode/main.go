// cmd/kvnode runs a sharded KV node: the gossip/rendezvous-hashing actor
// over UDP, plus a read-only debug HTTP surface for operators.
//
// Local commands are read from stdin, one per line:
//
//	JOIN 127.0.0.1:9701
//	PUT mykey=myvalue
//	GET mykey
//	DELETE mykey
//	LOOKUP mykey
//	GET_MEMBERS
//	COUNT_RECORDS
//	DUMP_KEYS
//	LEAVE
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"distributed-protocols/internal/kv"
	"distributed-protocols/internal/kv/debug"
	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/transport"
	"distributed-protocols/internal/wire"
)

func main() {
	var (
		name      string
		listen    string
		debugAddr string
		debugLogs bool
	)

	root := &cobra.Command{
		Use:   "kvnode",
		Short: "Sharded KV node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(name, listen, debugAddr, debugLogs)
		},
	}
	root.Flags().StringVarP(&name, "name", "n", "1", "node name (should be unique)")
	root.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:9701", "listen on host:port")
	root.Flags().StringVar(&debugAddr, "debug-addr", ":8080", "debug/metrics HTTP listen address")
	root.Flags().BoolVarP(&debugLogs, "debug", "d", false, "print debugging info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(name, listen, debugAddr string, debugLogs bool) error {
	tr, err := transport.Listen(listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	defer tr.Close()

	log := logging.New(name, string(tr.LocalAddr()), debugLogs)
	mailbox := runtime.NewLocalMailbox()
	node := kv.NewNode(name, log)
	rt := runtime.NewRuntime(tr, mailbox, node, log)
	rt.Start()
	defer rt.Stop()

	driver := mailbox.Driver()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := debug.NewHandler(node, log)
	router.Use(debug.Logger(log), debug.Recovery(log))
	handler.Register(router)

	srv := &http.Server{
		Addr:         debugAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("debug surface listening on %s", debugAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("debug server error: %v", err)
		}
	}()

	go func() {
		for reply := range driver.RecvChan() {
			fmt.Printf("%s %v\n", reply.Type, reply.Body)
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			fields := strings.SplitN(line, " ", 2)
			var body any
			if len(fields) == 2 {
				body = fields[1]
			}
			driver.Send(wire.NewLocal(fields[0], body))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infof("shutting down node %s", name)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
