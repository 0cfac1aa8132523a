package main

import "github.com/chanyoung/vinum/cli"

func main() {
	cli.Execute()
}
