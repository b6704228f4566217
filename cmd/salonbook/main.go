package main

import "github.com/JandsonS/teste-sub000/cmd"

func main() {
	cmd.Execute()
}
