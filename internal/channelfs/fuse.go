//go:build linux
// +build linux

package channelfs

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/plextuner/dvbscan/internal/tables"
)

func ino(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte("channelfs:" + key))
	return h.Sum64()
}

// Root is the mounted tree's root: one directory per namespace.
type Root struct {
	fs.Inode
	Snap *Snapshot
}

var _ fs.NodeReaddirer = (*Root)(nil)
var _ fs.NodeLookuper = (*Root)(nil)

func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(r.Snap.Namespaces))
	for _, n := range r.Snap.Namespaces {
		entries = append(entries, fuse.DirEntry{
			Name: n.DirName(),
			Ino:  ino("ns:" + n.DirName()),
			Mode: fuse.S_IFDIR | 0755,
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	for i := range r.Snap.Namespaces {
		n := &r.Snap.Namespaces[i]
		if n.DirName() != name {
			continue
		}
		child := &namespaceDirNode{root: r, ns: n}
		ch := r.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR, Ino: ino("ns:" + name)})
		out.Mode = fuse.S_IFDIR | 0755
		out.SetEntryTimeout(time.Second)
		out.SetAttrTimeout(time.Second)
		return ch, 0
	}
	return nil, syscall.ENOENT
}

// namespaceDirNode lists every transponder filed under one namespace.
type namespaceDirNode struct {
	fs.Inode
	root *Root
	ns   *Namespace
}

var _ fs.NodeReaddirer = (*namespaceDirNode)(nil)
var _ fs.NodeLookuper = (*namespaceDirNode)(nil)

func (n *namespaceDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(n.ns.Transponders))
	for _, t := range n.ns.Transponders {
		key := n.ns.DirName() + ":" + t.DirName()
		entries = append(entries, fuse.DirEntry{Name: t.DirName(), Ino: ino("tp:" + key), Mode: fuse.S_IFDIR | 0755})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *namespaceDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	for i := range n.ns.Transponders {
		t := &n.ns.Transponders[i]
		if t.DirName() != name {
			continue
		}
		key := n.ns.DirName() + ":" + name
		child := &transponderDirNode{root: n.root, tp: t}
		ch := n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR, Ino: ino("tp:" + key)})
		out.Mode = fuse.S_IFDIR | 0755
		out.SetEntryTimeout(time.Second)
		out.SetAttrTimeout(time.Second)
		return ch, 0
	}
	return nil, syscall.ENOENT
}

// transponderDirNode lists every service on one transponder as a read-only
// text file.
type transponderDirNode struct {
	fs.Inode
	root *Root
	tp   *Transponder
}

var _ fs.NodeReaddirer = (*transponderDirNode)(nil)
var _ fs.NodeLookuper = (*transponderDirNode)(nil)

func (n *transponderDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(n.tp.Services))
	for _, svc := range n.tp.Services {
		name := FileName(svc)
		key := n.tp.DirName() + ":" + name
		entries = append(entries, fuse.DirEntry{Name: name, Ino: ino("svc:" + key), Mode: fuse.S_IFREG | 0444})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *transponderDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	for _, svc := range n.tp.Services {
		if FileName(svc) != name {
			continue
		}
		content := formatServiceInfo(svc)
		key := n.tp.DirName() + ":" + name
		child := &serviceFileNode{content: content}
		ch := n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG, Ino: ino("svc:" + key)})
		out.Mode = fuse.S_IFREG | 0444
		out.Size = uint64(len(content))
		out.SetEntryTimeout(time.Second)
		out.SetAttrTimeout(time.Second)
		return ch, 0
	}
	return nil, syscall.ENOENT
}

// serviceFileNode is a read-only leaf holding one service's details.
type serviceFileNode struct {
	fs.Inode
	content []byte
}

var _ fs.NodeGetattrer = (*serviceFileNode)(nil)
var _ fs.NodeOpener = (*serviceFileNode)(nil)
var _ fs.NodeReader = (*serviceFileNode)(nil)

func (n *serviceFileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFREG | 0444
	out.Size = uint64(len(n.content))
	return 0
}

func (n *serviceFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *serviceFileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= int64(len(n.content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(n.content)) {
		end = int64(len(n.content))
	}
	return fuse.ReadResultData(n.content[off:end]), 0
}

func formatServiceInfo(svc tables.Service) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "name: %s\n", svc.Name)
	fmt.Fprintf(&buf, "provider: %s\n", svc.Provider)
	fmt.Fprintf(&buf, "service_ref: %s\n", svc.Ref)
	fmt.Fprintf(&buf, "scrambled: %v\n", svc.Scrambled)
	fmt.Fprintf(&buf, "ca_ids: %v\n", svc.CAIDs)
	return buf.Bytes()
}
