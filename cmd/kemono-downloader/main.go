package main

import "github.com/NovaHFly/kemono-su-downloader/cmd/kemono-downloader/cmd"

func main() {
	cmd.Execute()
}
