package main

import "github.com/jengzang/mobility-backend-go/internal/cli"

func main() {
	cli.Execute()
}
