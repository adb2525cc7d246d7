// Package services embeds the default service definitions used by the
// language-service clients.
package services

import (
	"embed"

	"github.com/lexcodex/langbridge/rpc"
)

// Root is the configuration root inside FS.
const Root = "."

// FS holds services.yaml.
//
//go:embed services.yaml
var FS embed.FS

// DefaultRegistry returns a fresh handle over the embedded definitions.
func DefaultRegistry() *rpc.RegistryHandle {
	return rpc.NewFSRegistryHandle(FS, Root)
}
