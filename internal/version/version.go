package version

import "fmt"

// Заполняются через -ldflags при сборке релиза, например:
//
//	-X .../internal/version.version=v1.2.0
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Build описывает версию собранного бинаря market-service.
type Build struct {
	Version string
	Commit  string
	Date    string
}

// Current возвращает версию текущей сборки.
func Current() Build {
	return Build{Version: version, Commit: commit, Date: buildDate}
}

func (b Build) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", b.Version, b.Commit, b.Date)
}
