// Command dedupd serves and administers the content deduplication store.
//
//	@title						Content Dedup API
//	@version					1.0
//	@description				Windowed duplicate detection for published text, images, and video.
//	@BasePath					/api/v1
package main

import (
	"context"
	"os"

	_ "github.com/tbourn/go-content-dedup/docs"
	"github.com/tbourn/go-content-dedup/internal/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(context.Background(), version, os.Args[1:], os.Stdout, os.Stderr))
}
