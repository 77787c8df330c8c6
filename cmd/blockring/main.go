// blockring runs producers and consumers against a bounded block ring and
// reports what got through.
//
// Usage:
//
//	blockring run --blocks 5 --block-size 256 --duration 5s
//	blockring run --config demo.yaml --consumers 4
package main

import (
	"os"

	"github.com/aradilov/blockring/cmd/blockring/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
