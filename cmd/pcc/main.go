package main

import "github.com/kidoz/patch-compliance-check/cmd"

func main() {
	cmd.Execute()
}
