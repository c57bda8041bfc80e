package main

import "github.com/Jbase16/AraUltra/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
