package main

import "github.com/cass-search/cass/cmd"

func main() {
	cmd.Execute()
}
