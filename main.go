package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/hrmslite/internal/hrmscli"
)

// Same entrypoint as cmd/hrms so `go run . run` works from a checkout.
func main() {
	if err := hrmscli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, hrmscli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			hrmscli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
