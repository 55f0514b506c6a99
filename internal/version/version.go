package version

import "fmt"

// Заполняется на этапе сборки через -ldflags -X.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String собирает строку для логов и health endpoint.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
