package main

import (
	"sampled/internal/ctl"
)

func main() {
	ctl.Execute()
}
