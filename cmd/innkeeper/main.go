// Package main provides the innkeeper CLI.
package main

import "github.com/mesh-intelligence/innkeeper/internal/cli"

func main() {
	cli.Execute()
}
