package main

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed all:frontend
var frontendFiles embed.FS

// getFrontendFS returns dir when set, otherwise the embedded "frontend"
// directory.
func getFrontendFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(frontendFiles, "frontend")
	if err != nil {
		panic(err)
	}
	return sub
}
