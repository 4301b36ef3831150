package main

import "github.com/oshokin/gtk-bootstrap/cmd/gtk-bootstrap/cmd"

func main() {
	cmd.Execute()
}
