package main

import (
	"fmt"
	"os"

	"github.com/skmehra/ecotrace/backend"
	"github.com/skmehra/ecotrace/frontend"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "shell" {
		frontend.RunFrontend()
		return
	}
	if len(os.Args) > 1 && os.Args[1] != "serve" {
		fmt.Println("usage: ecotrace [serve|shell]")
		os.Exit(2)
	}
	backend.RunBackend()
}
