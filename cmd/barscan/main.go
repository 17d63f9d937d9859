package main

import (
	"github.com/MeKo-Tech/barscan/cmd/barscan/cmd"
)

func main() {
	cmd.Execute()
}
