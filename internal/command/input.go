package command

import (
	"os"

	"github.com/nconklindev/sheetdiff/internal/loader"
)

type openedInput struct {
	input loader.Input
	file  *os.File
}

func openInput(path string) (*openedInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &openedInput{input: loader.Input{Name: path, Reader: f}, file: f}, nil
}

func (o *openedInput) close() {
	o.file.Close()
}
