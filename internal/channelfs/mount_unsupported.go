//go:build !linux
// +build !linux

package channelfs

import "fmt"

// Mount is unavailable on non-Linux builds because channelfs depends on go-fuse.
func Mount(mountPoint string, snap *Snapshot) error {
	return fmt.Errorf("channelfs mount is only supported on linux builds")
}

// MountWithAllowOther is unavailable on non-Linux builds because channelfs depends on go-fuse.
func MountWithAllowOther(mountPoint string, snap *Snapshot, allowOther bool) error {
	return fmt.Errorf("channelfs mount is only supported on linux builds")
}
