package main

import (
	"github.com/nguyentranbao-ct/chat-console/cmd"
)

func main() {
	cmd.Execute()
}
