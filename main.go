package main

import "github.com/klytics/tabkit/cmd"

func main() {
	cmd.Execute()
}
