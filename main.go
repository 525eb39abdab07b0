package main

import "github.com/edgeflare/hnstream/cmd/hnstream"

func main() {
	hnstream.Main()
}
