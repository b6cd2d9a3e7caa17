package main

import "github.com/nextlevelbuilder/orgkernel/cmd"

func main() {
	cmd.Execute()
}
