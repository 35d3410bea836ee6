package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gophertribe/devtool/build"
	"github.com/spf13/cobra"
)

const (
	binary      = "dist/mira"
	mainPackage = "./cmd/mira"
	// buildinfo receives version, commit and date at link time
	infoPackage  = "github.com/mklimuk/mira/buildinfo"
	builderImage = "gophertribe/gobuild:1.25-bookworm"
)

type target struct {
	os, arch string
}

func (t target) native() bool {
	return t.os == runtime.GOOS && t.arch == runtime.GOARCH
}

// BuildCmd builds the mira binary. Foreign targets are built inside the
// builder image, which has the hidapi headers cgo needs.
func BuildCmd() *cobra.Command {
	var (
		version string
		noCache bool
		inside  bool
		t       target
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the mira command",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !inside && !t.native() {
				slog.Info("building in container", "os", t.os, "arch", t.arch)
				return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", t.os, t.arch),
					[]string{"build", "--in-container", "--version", version, "--os", t.os, "--arch", t.arch},
					build.DockerBuildOpts{NoCache: noCache, Image: builderImage})
			}
			slog.Info("building", "binary", binary, "version", version)
			return build.GoBuild(binary, mainPackage, build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: infoPackage,
				EnableCgo:     true,
				OS:            t.os,
				Arch:          t.arch,
			})
		},
	}
	cmd.Flags().StringVar(&version, "version", "latest", "version injected into buildinfo")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not use the docker build cache")
	cmd.Flags().BoolVar(&inside, "in-container", false, "cross compile with go build, set when run in the builder image")
	cmd.Flags().StringVar(&t.os, "os", runtime.GOOS, "target os")
	cmd.Flags().StringVar(&t.arch, "arch", runtime.GOARCH, "target arch")
	return cmd
}
