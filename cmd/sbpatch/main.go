package main

import (
	"fmt"
	"os"

	sbpatch "github.com/sizumita/scrapbox-skill"
)

func main() {
	if err := sbpatch.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
