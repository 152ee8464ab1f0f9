package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if logRotator != nil {
		logRotator.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "river:", err)
		os.Exit(1)
	}
}
