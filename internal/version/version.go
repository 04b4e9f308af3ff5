package version

// Version values are set at build time using -ldflags.
var Version = "dev"
var Built = ""
var GitCommit = ""

const (
	AppName    = "watchfile"
	Repository = "https://github.com/mafumafuultu/watchfile"
)

// AppInfo is the body of GET /version.
type AppInfo struct {
	AppName    string `json:"app_name"`
	Version    string `json:"version"`
	Repository string `json:"repository"`
	Built      string `json:"built,omitempty"`
	GitCommit  string `json:"git_commit,omitempty"`
}

func GetAppInfo() AppInfo {
	return AppInfo{
		AppName:    AppName,
		Version:    Version,
		Repository: Repository,
		Built:      Built,
		GitCommit:  GitCommit,
	}
}

// String is the one-line form printed by --version.
func String() string {
	if Version == "" || Version == "dev" {
		return AppName + " dev"
	}
	return AppName + " version " + Version
}
