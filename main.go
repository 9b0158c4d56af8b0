package main

import "github.com/cnchi/installer/cmd"

func main() {
	cmd.Execute()
}
