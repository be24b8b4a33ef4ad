package main

import "github.com/theirongolddev/ptab/cmd"

func main() {
	cmd.Execute()
}
