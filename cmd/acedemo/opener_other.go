//go:build !(darwin || freebsd || linux)

package main

import (
	"errors"

	"github.com/abyssdigger/acebridge/dynmod"
)

func nativeOpener() (dynmod.Opener, error) {
	return nil, errors.New("native component libraries are not supported on this platform")
}
