package versions

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	manifestFileNameConstant             = "versions.yaml"
	manifestEncodingFailureTemplate      = "failed to encode version manifest: %w"
	manifestWriteFailureTemplateConstant = "failed to write version manifest %s: %w"
	manifestFilePermissionsConstant      = 0o644
	manifestDirectoryPermissionsConstant = 0o755
)

// Manifest summarizes one materialization run.
type Manifest struct {
	GeneratedAt time.Time       `yaml:"generated_at"`
	Versions    []ManifestEntry `yaml:"versions"`
}

// ManifestEntry records one materialized version.
type ManifestEntry struct {
	Name            string    `yaml:"name"`
	Refname         string    `yaml:"refname"`
	Source          string    `yaml:"source"`
	Commit          string    `yaml:"commit"`
	SubmoduleCommit string    `yaml:"submodule_commit"`
	CreationDate    time.Time `yaml:"creation_date"`
	OutputDirectory string    `yaml:"output_directory"`
}

// BuildManifest assembles the manifest for a set of materialized versions.
func (service *Service) BuildManifest(materializedVersions []MaterializedVersion) Manifest {
	manifestEntries := make([]ManifestEntry, 0, len(materializedVersions))
	for _, materializedVersion := range materializedVersions {
		manifestEntries = append(manifestEntries, ManifestEntry{
			Name:            materializedVersion.Reference.Name,
			Refname:         materializedVersion.Reference.Refname,
			Source:          materializedVersion.Reference.Source,
			Commit:          materializedVersion.Reference.Commit,
			SubmoduleCommit: materializedVersion.Reference.SubmoduleCommit,
			CreationDate:    materializedVersion.Reference.CreationDate,
			OutputDirectory: materializedVersion.OutputDirectory,
		})
	}
	return Manifest{GeneratedAt: service.dependencies.Clock.Now(), Versions: manifestEntries}
}

// WriteManifest renders the manifest as YAML into versions.yaml under the
// output root.
func (service *Service) WriteManifest(outputRoot string, materializedVersions []MaterializedVersion) (string, error) {
	manifest := service.BuildManifest(materializedVersions)
	encodedManifest, encodingError := yaml.Marshal(manifest)
	if encodingError != nil {
		return "", fmt.Errorf(manifestEncodingFailureTemplate, encodingError)
	}

	// A run can legitimately materialize nothing; the manifest still records that.
	if creationError := os.MkdirAll(outputRoot, manifestDirectoryPermissionsConstant); creationError != nil {
		return "", fmt.Errorf(manifestWriteFailureTemplateConstant, outputRoot, creationError)
	}

	manifestPath := filepath.Join(outputRoot, manifestFileNameConstant)
	if writeError := os.WriteFile(manifestPath, encodedManifest, manifestFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(manifestWriteFailureTemplateConstant, manifestPath, writeError)
	}
	return manifestPath, nil
}
