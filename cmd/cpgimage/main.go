package main

import "github.com/mvp-joe/cpgimage/internal/cli"

func main() {
	cli.Execute()
}
