//go:build !linux

package core

import "errors"

func pinThread(cpu int) error {
	return errors.New("core: thread pinning is not supported on this platform")
}
