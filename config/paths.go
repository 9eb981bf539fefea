package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "fieldreport"

// GetConfigDir returns ~/.config/fieldreport (%USERPROFILE%\.config\fieldreport on Windows).
func GetConfigDir() string {
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// GetDefaultDataDir returns ~/.local/share/fieldreport, or
// %LOCALAPPDATA%\fieldreport on Windows.
func GetDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(GetHomeDir(), "AppData", "Local")
		}
		return filepath.Join(local, appDirName)
	}
	return filepath.Join(GetHomeDir(), ".local", "share", appDirName)
}

func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

func GetUserConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

func GetHomeDir() string {
	if runtime.GOOS == "windows" {
		if home := os.Getenv("USERPROFILE"); home != "" {
			return home
		}
		if home := os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH"); home != "" {
			return home
		}
		return "C:\\"
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return "/"
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), path[2:])
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// EnsureDir creates a directory with user-only access.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions creates dataDir or tightens it to 0700.
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return EnsureDir(dataDir)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}
