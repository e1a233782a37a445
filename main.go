package main

import (
	"log"
	"os"

	"github.com/kvesta/vulncollect/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
