package main

import (
	"github.com/gpuopen-tools/rgd-testkit/internal/cmd/root"
)

func main() {
	root.Execute()
}
