// Package main implements the LNG laboratory telemetry relay entry point.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
