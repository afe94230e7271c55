package main

import "github.com/KaramelBytes/automateda/cmd"

func main() {
	cmd.Execute()
}
