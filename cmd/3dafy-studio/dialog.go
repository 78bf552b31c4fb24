package main

import (
	"fmt"
	"os"

	"github.com/sqweek/dialog"
)

// fileDialogLoad shows a native file dialog to pick an image. A
// cancelled dialog returns dialog.ErrCancelled; callers treat that as a
// no-op.
func fileDialogLoad() (string, error) {
	filename, err := dialog.File().
		Filter("Images", "png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp").
		Filter("All Files", "*").
		Title("Open Image").
		Load()

	if err != nil && err != dialog.ErrCancelled {
		fmt.Fprintf(os.Stderr, "File dialog error: %v\n", err)
	}
	return filename, err
}

// fileDialogSave shows a native save dialog for the exported GLB.
func fileDialogSave(startDir, startName string) (string, error) {
	builder := dialog.File().
		Filter("glTF Binary", "glb").
		Title("Export GLB").
		SetStartFile(startName)
	if startDir != "" {
		builder = builder.SetStartDir(startDir)
	}

	filename, err := builder.Save()
	if err != nil && err != dialog.ErrCancelled {
		fmt.Fprintf(os.Stderr, "File dialog error: %v\n", err)
	}
	return filename, err
}
