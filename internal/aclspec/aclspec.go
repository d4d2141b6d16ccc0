package aclspec

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	AclFileName   = "syft.pub.yaml"
	Everyone      = "*"
	AllFiles      = "**"
	SetTerminal   = true
	UnsetTerminal = false
)

// IsACLFile checks if the path ends with syft.pub.yaml
func IsACLFile(path string) bool {
	return strings.HasSuffix(path, AclFileName)
}

// AsACLPath converts any path to exact acl file path
func AsACLPath(path string) string {
	if IsACLFile(path) {
		return path
	}
	return filepath.Join(path, AclFileName)
}

// WithoutACLPath truncates syft.pub.yaml from the path
func WithoutACLPath(path string) string {
	return strings.TrimSuffix(path, AclFileName)
}

// Exists checks if a non-empty, non-symlink ACL file exists at the given path
func Exists(path string) bool {
	aclPath := AsACLPath(path)
	stat, err := os.Lstat(aclPath)
	if err != nil || stat.Mode()&os.ModeSymlink != 0 {
		return false
	}
	return stat.Size() > 0
}
