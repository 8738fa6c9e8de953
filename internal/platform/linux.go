package platform

import "path/filepath"

// getLinuxInfo follows the XDG base directory layout.
func getLinuxInfo(homeDir, username string, getenv func(string) string) *Info {
	return &Info{
		OS:           Linux,
		HomeDir:      homeDir,
		Username:     username,
		StorageRoot:  homeDir,
		DownloadsDir: filepath.Join(homeDir, "Downloads"),
		ConfigDir:    xdgDir(getenv, "XDG_CONFIG_HOME", homeDir, ".config"),
		DataDir:      xdgDir(getenv, "XDG_DATA_HOME", homeDir, ".local/share"),
		ProtectedPaths: []string{
			filepath.Join(homeDir, ".ssh"),
			filepath.Join(homeDir, ".gnupg"),
			filepath.Join(homeDir, ".local/share/keyrings"),
		},
	}
}
