package export

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	unsafeEntryPathTemplateConstant     = "archive entry %q escapes the destination directory"
	directoryCreationFailureTemplate    = "failed to create directory %s: %w"
	fileCreationFailureTemplateConstant = "failed to write file %s: %w"
	symlinkCreationFailureTemplate      = "failed to create symlink %s: %w"
	archiveReadFailureTemplateConstant  = "failed to read archive entry: %w"
	mountPathEscapeTemplateConstant     = "submodule mount path %q escapes the destination directory"
	directoryPermissionsDefaultConstant = 0o755
)

// resolveSubmoduleDestination joins the mount subpath onto the destination
// directory and rejects mounts that would escape it.
func resolveSubmoduleDestination(destinationDirectory string, mountPath string) (string, error) {
	normalizedMountPath := filepath.FromSlash(mountPath)
	if !filepath.IsLocal(normalizedMountPath) {
		return "", fmt.Errorf(mountPathEscapeTemplateConstant, mountPath)
	}
	return filepath.Join(destinationDirectory, normalizedMountPath), nil
}

// extractTarArchive unpacks an in-memory tar payload into the destination
// directory, creating it when absent. Entry paths are confined to the
// destination; any entry that would escape aborts the extraction.
func extractTarArchive(archivePayload []byte, destinationDirectory string) error {
	if creationError := os.MkdirAll(destinationDirectory, directoryPermissionsDefaultConstant); creationError != nil {
		return fmt.Errorf(directoryCreationFailureTemplate, destinationDirectory, creationError)
	}

	archiveReader := tar.NewReader(bytes.NewReader(archivePayload))
	for {
		entryHeader, readError := archiveReader.Next()
		if errors.Is(readError, io.EOF) {
			return nil
		}
		if readError != nil {
			return fmt.Errorf(archiveReadFailureTemplateConstant, readError)
		}

		entryPath := filepath.FromSlash(strings.TrimSuffix(entryHeader.Name, "/"))
		if len(entryPath) == 0 || entryPath == "." {
			continue
		}
		if !filepath.IsLocal(entryPath) {
			return fmt.Errorf(unsafeEntryPathTemplateConstant, entryHeader.Name)
		}
		destinationPath := filepath.Join(destinationDirectory, entryPath)

		switch entryHeader.Typeflag {
		case tar.TypeDir:
			if creationError := os.MkdirAll(destinationPath, entryHeader.FileInfo().Mode().Perm()); creationError != nil {
				return fmt.Errorf(directoryCreationFailureTemplate, destinationPath, creationError)
			}
		case tar.TypeReg:
			if writeError := writeRegularFile(archiveReader, destinationPath, entryHeader.FileInfo().Mode().Perm()); writeError != nil {
				return writeError
			}
		case tar.TypeSymlink:
			if creationError := createSymlink(entryHeader.Linkname, destinationPath); creationError != nil {
				return creationError
			}
		default:
			// pax headers and other extended entries carry no tree content.
			continue
		}
	}
}

func writeRegularFile(contentReader io.Reader, destinationPath string, fileMode os.FileMode) error {
	if creationError := os.MkdirAll(filepath.Dir(destinationPath), directoryPermissionsDefaultConstant); creationError != nil {
		return fmt.Errorf(directoryCreationFailureTemplate, filepath.Dir(destinationPath), creationError)
	}
	destinationFile, openError := os.OpenFile(destinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if openError != nil {
		return fmt.Errorf(fileCreationFailureTemplateConstant, destinationPath, openError)
	}
	_, copyError := io.Copy(destinationFile, contentReader)
	closeError := destinationFile.Close()
	if copyError != nil {
		return fmt.Errorf(fileCreationFailureTemplateConstant, destinationPath, copyError)
	}
	if closeError != nil {
		return fmt.Errorf(fileCreationFailureTemplateConstant, destinationPath, closeError)
	}
	return nil
}

func createSymlink(linkTarget string, destinationPath string) error {
	if creationError := os.MkdirAll(filepath.Dir(destinationPath), directoryPermissionsDefaultConstant); creationError != nil {
		return fmt.Errorf(directoryCreationFailureTemplate, filepath.Dir(destinationPath), creationError)
	}
	if removalError := os.Remove(destinationPath); removalError != nil && !errors.Is(removalError, os.ErrNotExist) {
		return fmt.Errorf(symlinkCreationFailureTemplate, destinationPath, removalError)
	}
	if creationError := os.Symlink(linkTarget, destinationPath); creationError != nil {
		return fmt.Errorf(symlinkCreationFailureTemplate, destinationPath, creationError)
	}
	return nil
}
