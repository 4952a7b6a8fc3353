package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/paralympics/authapi/internal/admin"
)

func main() {
	app := admin.NewApp(os.Stdin, os.Stdout, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
