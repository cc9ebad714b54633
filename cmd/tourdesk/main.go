package main

import "github.com/vietddude/tourdesk/internal/cli"

func main() {
	cli.Execute()
}
