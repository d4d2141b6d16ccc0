package permtree

import (
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// FileName is the fixed basename of a permission file anywhere in a
	// datasite tree.
	FileName = "_.syftperm"

	// Global, when present in any principal list, means "every user".
	Global = "GLOBAL"
)

// PermissionFile is the on-disk record: {"admin":[...],"read":[...],"write":[...]}.
type PermissionFile struct {
	Admin []string `json:"admin"`
	Read  []string `json:"read"`
	Write []string `json:"write"`
}

// Access is the resolved effective permission for one (path, user) pair.
type Access struct {
	Read  bool
	Write bool
	Admin bool
}

// principals turns a permission file's lists into membership sets used for
// fast lookup while evaluating a path.
type principals struct {
	admin mapset.Set[string]
	read  mapset.Set[string]
	write mapset.Set[string]
}

func newPrincipals(pf *PermissionFile) *principals {
	return &principals{
		admin: mapset.NewSet(pf.Admin...),
		read:  mapset.NewSet(pf.Read...),
		write: mapset.NewSet(pf.Write...),
	}
}

// effective resolves the Access for user against this permission record.
// Admin implies all rights and deliberately ignores GLOBAL: a public-admin
// grant would be a datasite takeover, so GLOBAL in the admin list is inert.
func (p *principals) effective(user string) Access {
	isAdmin := p.admin.Contains(user)
	if isAdmin {
		return Access{Read: true, Write: true, Admin: true}
	}

	return Access{
		Read:  p.read.Contains(user) || p.read.Contains(Global),
		Write: p.write.Contains(user) || p.write.Contains(Global),
	}
}

// OwnerOnly builds the default permission file created at datasite init:
// owner-only read/write/admin at the datasite root.
func OwnerOnly(owner string) *PermissionFile {
	return &PermissionFile{
		Admin: []string{owner},
		Read:  []string{owner},
		Write: []string{owner},
	}
}

// PublicRead builds the public-read variant used for subtrees meant to be
// visible to everyone but writable only by the owner.
func PublicRead(owner string) *PermissionFile {
	return &PermissionFile{
		Admin: []string{owner},
		Read:  []string{Global},
		Write: []string{owner},
	}
}
