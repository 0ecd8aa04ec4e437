// Package main is the entry point for grebe.
package main

import "grebe/cmd"

func main() {
	cmd.Execute()
}
