//go:build darwin || freebsd || linux

package main

import (
	"github.com/abyssdigger/acebridge/dynmod"
	"github.com/abyssdigger/acebridge/dynmod/native"
)

func nativeOpener() (dynmod.Opener, error) {
	return native.NewOpener(), nil
}
