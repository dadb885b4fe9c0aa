package handlers

import (
	"net/http"
	"runtime"
	"sync"

	apperrors "github.com/3leaps/bucketwalk/internal/errors"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

var (
	versionMu   sync.RWMutex
	versionInfo = VersionInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// SetVersionInfo sets the build information served by VersionHandler.
func SetVersionInfo(version, commit, buildDate string) {
	versionMu.Lock()
	defer versionMu.Unlock()
	versionInfo = VersionInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// GetVersionInfo returns the build information.
func GetVersionInfo() VersionInfo {
	versionMu.RLock()
	defer versionMu.RUnlock()
	info := versionInfo
	info.GoVersion = runtime.Version()
	return info
}

// VersionHandler serves GetVersionInfo as JSON.
func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	apperrors.WriteJSON(w, http.StatusOK, GetVersionInfo())
}
