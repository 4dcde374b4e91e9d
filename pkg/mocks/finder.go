package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/gpuopen-tools/rgd-testkit/internal/kit"
)

type KitFinderMock struct {
	mock.Mock
}

var _ kit.Finder = (*KitFinderMock)(nil)

func (m *KitFinderMock) RootDir() string {
	args := m.Called()
	return args.String(0)
}

func (m *KitFinderMock) CLIPath() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *KitFinderMock) BackendValidatorPath() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *KitFinderMock) CrashGeneratorPath() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *KitFinderMock) VersionFilePath() string {
	args := m.Called()
	return args.String(0)
}

func (m *KitFinderMock) DefaultDescriptorPath() string {
	args := m.Called()
	return args.String(0)
}
