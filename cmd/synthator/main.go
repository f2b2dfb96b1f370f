// cmd/synthator/main.go
package main

import (
	"synthator/internal/appshell"
	"synthator/internal/cli"
)

func main() {
	appshell.Main(cli.Execute)
}
