package dependencies

import (
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
	"github.com/gpuopen-tools/rgd-testkit/util/fileutil"
)

// MinKitVersion is the oldest test kit release this harness supports.
// Older kits ship without the rgd_test backend validator.
var MinKitVersion = semver.MustParse("1.0.0")

// The "patch" part is optional to be more lenient when Version.txt
// contains something like 1.2 instead of 1.2.0
var versionRegex = regexp.MustCompile(`(?m)(?P<version>\d+\.\d+(\.\d+)?)`)

// KitVersionString returns the trimmed contents of the kit's
// Version.txt. A kit without a version file yields an empty string,
// no version info is printed then.
func KitVersionString(finder kit.Finder) (string, error) {
	path := finder.VersionFilePath()
	exists, err := fileutil.Exists(path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return strings.TrimSpace(string(contents)), nil
}

// CheckKitVersion parses the kit version and warns when it is older
// than MinKitVersion. Kits without a parseable version are let through;
// we want to be lenient if we were not able to extract the version.
func CheckKitVersion(finder kit.Finder, logger *log.Logger) {
	versionString, err := KitVersionString(finder)
	if err != nil {
		logger.Warnf("Unable to read test kit version, message: %v", err)
		return
	}
	if versionString == "" {
		logger.Debugf("Test kit has no version file")
		return
	}

	version, err := extractVersion(versionString)
	if err != nil {
		logger.Warnf("Unable to get test kit version, message: %v", err)
		return
	}

	logger.Debugf("Found test kit version %s", version)
	if version.LessThan(MinKitVersion) {
		logger.Warnf(MessageVersion, MinKitVersion, version)
	}
}

func extractVersion(output string) (*semver.Version, error) {
	result := versionRegex.FindStringSubmatch(output)
	if len(result) <= 1 {
		return nil, errors.Errorf("No matching version string in %q", output)
	}

	version, err := semver.NewVersion(result[1])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return version, nil
}
