package platform

import "path/filepath"

// getMacOSInfo returns platform-specific information for macOS
func getMacOSInfo(homeDir, username string) *Info {
	appSupport := filepath.Join(homeDir, "Library/Application Support", AppName)
	return &Info{
		OS:           MacOS,
		HomeDir:      homeDir,
		Username:     username,
		StorageRoot:  homeDir,
		DownloadsDir: filepath.Join(homeDir, "Downloads"),
		ConfigDir:    appSupport,
		DataDir:      appSupport,
		ProtectedPaths: []string{
			filepath.Join(homeDir, ".ssh"),
			filepath.Join(homeDir, ".gnupg"),
			filepath.Join(homeDir, "Library/Keychains"),
		},
	}
}
