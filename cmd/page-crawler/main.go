package main

import cmd "github.com/rohmanhakim/page-crawler/internal/cli"

func main() {
	cmd.Execute()
}
