// cmd/kvctl is a CLI for a kvnode's read-only debug surface, built with
// Cobra like the other binaries under cmd/.
//
// Usage:
//
//	kvctl health  --addr http://localhost:8080
//	kvctl members --addr http://localhost:8080
//	kvctl keys    --addr http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"distributed-protocols/internal/kv/debug"
)

var (
	nodeAddr string
	timeout  time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "kvctl",
		Short: "Inspect a kvnode's debug surface",
	}
	root.PersistentFlags().StringVarP(&nodeAddr, "addr", "a",
		"http://localhost:8080", "kvnode debug surface address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(healthCmd(), membersCmd(), keysCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show node health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := debug.New(nodeAddr, timeout)
			resp, err := c.Health(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(resp)
		},
	}
}

func membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List alive and failed members",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := debug.New(nodeAddr, timeout)
			resp, err := c.Members(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(resp)
		},
	}
}

func keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List keys held locally by the node",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := debug.New(nodeAddr, timeout)
			resp, err := c.Keys(context.Background())
			if err != nil {
				return err
			}
			return prettyPrint(resp)
		},
	}
}

func prettyPrint(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
