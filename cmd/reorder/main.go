// Command reorder moves and rebalances integer order keys in the admin
// database.
package main

import (
	"context"
	"os"

	"github.com/roach88/reorder/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
