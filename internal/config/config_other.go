//go:build !windows

package config

func ensureDirAccessible(dir string) error {
	return nil
}
