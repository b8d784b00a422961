// Package gitrepo contains helpers for interrogating Git repositories.
//
// It exposes RepositoryLocator for discovering the authoritative top-level
// working directory (including superproject roots for submodule checkouts)
// and for checking whether a file exists inside a reference's tree.
package gitrepo
