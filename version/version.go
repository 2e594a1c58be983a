package version

var (
	Version = "0.4.0"

	// git hash should be filled by:
	// 	go build -ldflags="-X github.com/niklasl/oxrq/version.GitHash=xxxx"

	GitHash   = "dev snapshot"
	BuildDate string
)
