package main

import (
	"context"
	"fmt"
	"os"

	"library-catalog/cli"
)

func main() {
	if err := cli.Execute(context.Background(), ".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
