package main

import "github.com/grata-labs/gitcache/cmd"

func main() {
	cmd.Execute()
}
