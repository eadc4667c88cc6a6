// hglc compiles one-line cooperation sentences into canonical JSON records.
package main

import "github.com/ppiankov/hglc/internal/cli"

func main() {
	cli.Execute()
}
