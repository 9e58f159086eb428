package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/lk2023060901/pairchat-go/application"
)

func main() {
	if err := application.New().Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pairchat: %+v\n", err)
		os.Exit(1)
	}
}
