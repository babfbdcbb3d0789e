package main

import (
	"fmt"
	"os"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/Alias1177/FixPredict/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code := int(apperr.CodeOf(err))
		if code == 0 {
			code = 1
		}
		os.Exit(code)
	}
}
