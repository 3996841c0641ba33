package main

import "github.com/didar67/enterprise-log-file-analyzer/internal/cmd"

func main() {
	cmd.Execute()
}
