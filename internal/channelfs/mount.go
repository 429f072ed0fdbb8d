//go:build linux
// +build linux

package channelfs

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Mount mounts the read-only channel browse tree at mountPoint and blocks
// until the process receives SIGINT/SIGTERM.
func Mount(mountPoint string, snap *Snapshot) error {
	return MountWithAllowOther(mountPoint, snap, false)
}

// MountWithAllowOther mounts the tree and optionally enables FUSE
// allow_other, for access from a process other than the one that mounted
// it.
func MountWithAllowOther(mountPoint string, snap *Snapshot, allowOther bool) error {
	root := &Root{Snap: snap}
	opts := &fs.Options{MountOptions: fuse.MountOptions{Debug: false, AllowOther: allowOther}}
	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		log.Println("channelfs: unmounting")
		_ = server.Unmount()
	}()

	server.Wait()
	stop()
	return nil
}
