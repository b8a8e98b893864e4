package main

import "github.com/frahmantamala/time-tracking/cmd"

func main() {
	cmd.Execute()
}
