// Package shared defines collaborator contracts reused across refcast services.
package shared
