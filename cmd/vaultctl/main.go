package main

import (
	"fmt"
	"os"

	"github.com/MKhiriev/go-doc-vault/internal/cli"
	"github.com/MKhiriev/go-doc-vault/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	root := cli.NewRootCommand(models.BuildInfo{
		Version: buildVersion,
		Date:    buildDate,
		Commit:  buildCommit,
	})

	err := root.Execute()
	if err == nil {
		return
	}
	code, hint := cli.ExitCode(err)
	fmt.Fprintln(os.Stderr, "vaultctl:", err)
	if hint != "" {
		fmt.Fprintln(os.Stderr, "hint:", hint)
	}
	os.Exit(code)
}
