// Package main is the CompeteIQ API server.
//
// Usage:
//
//	competeiq serve --config config.yaml
//	competeiq migrate
//	competeiq version
package main

func main() {
	Execute()
}
