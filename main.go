/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "chatcore/cmd"

func main() {
	cmd.Execute()
}
