// Command cypher2sql translates Cypher graph patterns into SQL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/cypher2sql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
