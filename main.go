package main

import "github.com/vibast-solutions/ms-go-remittance/cmd"

func main() {
	cmd.Execute()
}
