// Command orient maps objects from a reference line onto target lines.
//
// Scripts describe a scene of points, lines and solids and request orient
// jobs; each job derives one similarity transform per target line and
// copies or moves the objects onto it.
//
//	orient run examples/fan.orient
//	orient solve --source "0,0,0 0,0,10" --target "5,0,0 5,10,0"
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
