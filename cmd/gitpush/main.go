package main

import "github.com/Ning0612/Gitpush/cmd/gitpush/cmd"

func main() {
	cmd.Execute()
}
