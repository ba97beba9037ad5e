// Package main provides the CLI entrypoint for atmos.
package main

func main() {
	Execute()
}
