package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// AppName names the per-user config and data directories.
const AppName = "storage-sweep"

// Info contains the per-user locations storage-sweep works with.
type Info struct {
	OS           Platform
	HomeDir      string
	Username     string
	StorageRoot  string
	DownloadsDir string
	ConfigDir    string
	DataDir      string
	// ProtectedPaths are never scanned for deletion regardless of config.
	ProtectedPaths []string
}

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// GetInfo returns platform-specific information
func GetInfo() (*Info, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}
	return infoFor(Detect(), currentUser.HomeDir, currentUser.Username, os.Getenv)
}

func infoFor(p Platform, homeDir, username string, getenv func(string) string) (*Info, error) {
	switch p {
	case MacOS:
		return getMacOSInfo(homeDir, username), nil
	case Linux:
		return getLinuxInfo(homeDir, username, getenv), nil
	default:
		return nil, ErrUnsupportedPlatform
	}
}

// GetUserConfigDir returns the directory holding config.yaml.
func GetUserConfigDir() (string, error) {
	info, err := GetInfo()
	if err != nil {
		return "", err
	}
	return info.ConfigDir, nil
}

// GetUserDataDir returns the directory holding the snapshot, trash and history.
func GetUserDataDir() (string, error) {
	info, err := GetInfo()
	if err != nil {
		return "", err
	}
	return info.DataDir, nil
}

func xdgDir(getenv func(string) string, key, homeDir, fallback string) string {
	if dir := getenv(key); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(homeDir, fallback, AppName)
}

// Errors
var (
	ErrUnsupportedPlatform = &PlatformError{"unsupported platform"}
)

// PlatformError represents a platform-related error
type PlatformError struct {
	Message string
}

func (e *PlatformError) Error() string {
	return e.Message
}
