// Package verify checks a rendered project against the layout its
// configuration implies.
package verify

import (
	"sort"

	"github.com/opmodel/dsbake/internal/options"
)

var fixedDirs = []string{
	".",
	"datasets",
	"datasets/external",
	"datasets/interim",
	"datasets/final",
	"datasets/raw",
	"docs",
	"model_weights",
	"notebooks",
	"reports",
	"reports/figures",
	"logs",
}

var moduleDirs = []string{"", "data", "features", "models", "visualization", "utils"}

var fixedFiles = []string{
	"Makefile",
	"README.md",
	"setup.py",
	".env",
	".gitignore",
	".flake8",
	".pre-commit-config.yaml",
	".style.yapf",
	"datasets/external/.gitkeep",
	"datasets/interim/.gitkeep",
	"datasets/final/.gitkeep",
	"datasets/raw/.gitkeep",
	"docs/Makefile",
	"docs/commands.rst",
	"docs/conf.py",
	"docs/getting-started.rst",
	"docs/index.rst",
	"docs/make.bat",
	"notebooks/.gitkeep",
	"reports/.gitkeep",
	"reports/figures/.gitkeep",
	"model_weights/.gitkeep",
	"logs/.gitkeep",
	"test.py",
	"train.py",
	"evaluate.py",
}

var moduleFiles = []string{
	"__init__.py",
	"data/__init__.py",
	"data/make_dataset.py",
	"features/__init__.py",
	"features/build_features.py",
	"models/__init__.py",
	"models/train_model.py",
	"models/predict_model.py",
	"visualization/__init__.py",
	"visualization/visualize.py",
	"utils/__init__.py",
}

// LicenseFile is present exactly when a license is chosen.
const LicenseFile = "LICENSE"

// ExpectedDirs returns every directory a project rendered for cfg must
// have, including ".", sorted.
func ExpectedDirs(cfg options.Configuration) []string {
	module := cfg[options.ModuleName]
	dirs := append([]string(nil), fixedDirs...)
	for _, d := range moduleDirs {
		dirs = append(dirs, join(module, d))
	}
	sort.Strings(dirs)
	return dirs
}

// ExpectedFiles returns every file a project rendered for cfg must have,
// sorted.
func ExpectedFiles(cfg options.Configuration) []string {
	module := cfg[options.ModuleName]
	files := append([]string(nil), fixedFiles...)
	for _, f := range moduleFiles {
		files = append(files, join(module, f))
	}
	if cfg.HasLicense() {
		files = append(files, LicenseFile)
	}
	files = append(files, cfg[options.DependencyFile])
	sort.Strings(files)
	return files
}

func join(dir, name string) string {
	if name == "" {
		return dir
	}
	return dir + "/" + name
}
