package main

import (
	"fmt"
	"log/slog"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		slog.Error("reviewer failed to run", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
