package main

import (
	cmd "github.com/cozy-creator/product-studio/cmd/studio"
)

func main() {
	cmd.Execute()
}
