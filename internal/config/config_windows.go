package config

import (
	"github.com/hectane/go-acl"
	"github.com/pkg/errors"
)

// os.Chmod only toggles the read-only attribute on Windows. The run
// output directories are also written by the driver tooling, which can
// run under a different account, so access is granted through the ACL.
func ensureDirAccessible(dir string) error {
	err := acl.Chmod(dir, 0o755)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
